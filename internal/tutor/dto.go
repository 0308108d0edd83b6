// AngelaMos | 2026
// dto.go

package tutor

import (
	"github.com/carterperez-dev/templates/tutor-backend/internal/activity"
)

type AskRequest struct {
	Question string `json:"question"            validate:"required,min=1,max=4000"`
	Subject  string `json:"subject,omitempty"   validate:"omitempty,max=50"`
	ExamType string `json:"exam_type,omitempty" validate:"omitempty,max=50"`
	Language string `json:"language,omitempty"  validate:"omitempty,min=2,max=10,alpha"`
}

type AskResponse struct {
	Answer   string `json:"answer"`
	Subject  string `json:"subject"`
	Language string `json:"language"`
	// -1 means unlimited.
	QuestionsRemaining int               `json:"questions_remaining"`
	Ledger             *activity.Outcome `json:"ledger,omitempty"`
}

type CatalogResponse struct {
	Subjects  []Subject  `json:"subjects"`
	ExamTypes []ExamType `json:"exam_types"`
}
