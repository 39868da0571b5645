package domain

import "time"

type Course struct {
	ID        string
	Name      string
	TimeZone  string
	Institute string
	CreatedAt time.Time
	DeletedAt *time.Time
}

func (c *Course) IsInRecycleBin() bool {
	return c.DeletedAt != nil
}
