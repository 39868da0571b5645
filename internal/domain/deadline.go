package domain

import "time"

type DeadlineExtensionKey struct {
	CourseID     string
	SessionName  string
	UserEmail    string
	IsInstructor bool
}

// DeadlineExtension is the authoritative record of a per-user deadline.
// The maps on FeedbackSession are a cache of these records.
type DeadlineExtension struct {
	CourseID     string
	SessionName  string
	UserEmail    string
	IsInstructor bool
	EndTime      time.Time
	CreatedAt    time.Time
	EditedAt     time.Time
}

func (d *DeadlineExtension) Key() DeadlineExtensionKey {
	return DeadlineExtensionKey{
		CourseID:     d.CourseID,
		SessionName:  d.SessionName,
		UserEmail:    d.UserEmail,
		IsInstructor: d.IsInstructor,
	}
}
