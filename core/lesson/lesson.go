package lesson

import (
	"errors"
	"strconv"
	"time"

	"github.com/irsalhamdi/school-of-presence/core/course"
)

// Commitment periods a student can follow a course at.
const (
	Period14 = 14
	Period28 = 28
)

var ErrPeriod = errors.New("period must be 14 or 28")

type Lesson struct {
	ID          string    `json:"id" db:"lesson_id"`
	CourseID    string    `json:"courseId" db:"course_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	VideoURL    string    `json:"videoUrl" db:"video_url"`
	ResourceURL string    `json:"resourceUrl,omitempty" db:"resource_url"`
	DayNumber   int       `json:"dayNumber" db:"day_number"`
	Published   bool      `json:"published" db:"is_published"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

type LessonNew struct {
	CourseID    string `json:"courseId" validate:"required,uuid"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl" validate:"required,url"`
	ResourceURL string `json:"resourceUrl" validate:"omitempty,url"`
	DayNumber   int    `json:"dayNumber" validate:"required,gte=1,lte=28"`
	Published   bool   `json:"published"`
}

type Progress struct {
	UserID         string    `json:"userId" db:"user_id"`
	CourseID       string    `json:"courseId" db:"course_id"`
	MinutesWatched int       `json:"minutesWatched" db:"minutes_watched"`
	Completed      bool      `json:"completed" db:"is_completed"`
	LastWatchedAt  time.Time `json:"lastWatchedAt" db:"last_watched_at"`
}

type ProgressUp struct {
	MinutesWatched *int `json:"minutesWatched" validate:"required,gte=0"`
}

// Dashboard is what an owner of the course gets to play.
type Dashboard struct {
	Course   course.Course `json:"course"`
	VideoURL string        `json:"videoUrl"`
	Period   int           `json:"period"`
	Lessons  []Lesson      `json:"lessons"`
	Progress *Progress     `json:"progress"`
}

// ParsePeriod reads the period query value; an empty value means the full
// 28 days.
func ParsePeriod(v string) (int, error) {
	if v == "" {
		return Period28, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil || (n != Period14 && n != Period28) {
		return 0, ErrPeriod
	}
	return n, nil
}
