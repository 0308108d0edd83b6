// AngelaMos | 2026
// dto.go

package activity

type RecordQuizRequest struct {
	Subject        string `json:"subject"         validate:"required,min=1,max=100"`
	ExamType       string `json:"exam_type"       validate:"required,min=1,max=50"`
	Score          int    `json:"score"           validate:"min=0"`
	TotalQuestions int    `json:"total_questions" validate:"required,min=1,max=500"`
}

type TrackProgressRequest struct {
	Subject    string `json:"subject"    validate:"required,min=1,max=100"`
	Topic      string `json:"topic"      validate:"required,min=1,max=200"`
	Confidence *int   `json:"confidence" validate:"required,min=0,max=100"`
}

type UploadResponse struct {
	Filename  string   `json:"filename"`
	SizeBytes int64    `json:"size_bytes"`
	Outcome   *Outcome `json:"ledger"`
}

type ProgressListResponse struct {
	Topics []TopicProgress `json:"topics"`
}
