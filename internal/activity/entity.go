// AngelaMos | 2026
// entity.go

package activity

import (
	"time"
)

type ChatEntry struct {
	ID        int64     `db:"id"         json:"id"`
	LearnerID string    `db:"learner_id" json:"-"`
	Subject   string    `db:"subject"    json:"subject"`
	Question  string    `db:"question"   json:"question"`
	Answer    string    `db:"answer"     json:"answer"`
	Language  string    `db:"language"   json:"language"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type QuizResult struct {
	LearnerID      string    `db:"learner_id"`
	Subject        string    `db:"subject"`
	ExamType       string    `db:"exam_type"`
	Score          int       `db:"score"`
	TotalQuestions int       `db:"total_questions"`
	CompletedAt    time.Time `db:"completed_at"`
}

// Ratio is the fraction of questions answered correctly.
func (q QuizResult) Ratio() float64 {
	if q.TotalQuestions <= 0 {
		return 0
	}
	return float64(q.Score) / float64(q.TotalQuestions)
}

type Upload struct {
	LearnerID string    `db:"learner_id"`
	Filename  string    `db:"filename"`
	SizeBytes int64     `db:"size_bytes"`
	CreatedAt time.Time `db:"created_at"`
}

type TopicProgress struct {
	LearnerID     string    `db:"learner_id"     json:"-"`
	Subject       string    `db:"subject"        json:"subject"`
	Topic         string    `db:"topic"          json:"topic"`
	Confidence    int       `db:"confidence"     json:"confidence"`
	TimesReviewed int       `db:"times_reviewed" json:"times_reviewed"`
	UpdatedAt     time.Time `db:"updated_at"     json:"updated_at"`
}
