package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedback_service/internal/domain"
	"feedback_service/internal/repository"
)

type (
	// DB keeps every table in process memory. Rows are copied on the way in
	// and out so callers never share state with the store.
	DB struct {
		courses     *courseTable
		sessions    *sessionTable
		questions   *questionTable
		responses   *responseTable
		comments    *commentTable
		extensions  *extensionTable
		students    *studentTable
		instructors *instructorTable
	}

	courseTable struct {
		t     map[string]*domain.Course
		mutex sync.RWMutex
	}

	sessionTable struct {
		t     map[domain.SessionKey]*domain.FeedbackSession
		mutex sync.RWMutex
	}

	questionTable struct {
		t     map[uuid.UUID]*domain.FeedbackQuestion
		mutex sync.RWMutex
	}

	responseTable struct {
		t     map[uuid.UUID]*domain.FeedbackResponse
		keys  map[domain.ResponseKey]uuid.UUID
		mutex sync.RWMutex
	}

	commentTable struct {
		t     map[uuid.UUID]*domain.FeedbackResponseComment
		mutex sync.RWMutex
	}

	extensionTable struct {
		t     map[domain.DeadlineExtensionKey]*domain.DeadlineExtension
		mutex sync.RWMutex
	}

	rosterKey struct {
		courseID string
		email    string
	}

	studentTable struct {
		t     map[rosterKey]*domain.Student
		mutex sync.RWMutex
	}

	instructorTable struct {
		t     map[rosterKey]*domain.Instructor
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		courses:     &courseTable{t: make(map[string]*domain.Course)},
		sessions:    &sessionTable{t: make(map[domain.SessionKey]*domain.FeedbackSession)},
		questions:   &questionTable{t: make(map[uuid.UUID]*domain.FeedbackQuestion)},
		responses:   &responseTable{t: make(map[uuid.UUID]*domain.FeedbackResponse), keys: make(map[domain.ResponseKey]uuid.UUID)},
		comments:    &commentTable{t: make(map[uuid.UUID]*domain.FeedbackResponseComment)},
		extensions:  &extensionTable{t: make(map[domain.DeadlineExtensionKey]*domain.DeadlineExtension)},
		students:    &studentTable{t: make(map[rosterKey]*domain.Student)},
		instructors: &instructorTable{t: make(map[rosterKey]*domain.Instructor)},
	}
}

// NewStore returns a Store backed by a fresh in-memory DB.
func NewStore() *repository.Store {
	return Open().Store()
}

func (db *DB) Store() *repository.Store {
	return &repository.Store{
		Courses:     &courseRepository{db: db.courses},
		Sessions:    &sessionRepository{db: db.sessions},
		Questions:   &questionRepository{db: db.questions},
		Responses:   &responseRepository{db: db.responses},
		Comments:    &commentRepository{db: db.comments},
		Extensions:  &extensionRepository{db: db.extensions},
		Students:    &studentRepository{db: db.students},
		Instructors: &instructorRepository{db: db.instructors},
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// takeFirst returns at most limit items of the sorted input; limit <= 0
// means no limit.
func takeFirst[T any](items []T, less func(a, b T) bool, limit int) []T {
	sort.Slice(items, func(i, j int) bool { return less(items[i], items[j]) })
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
