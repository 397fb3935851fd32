package services

import (
	"strings"
	"time"
)

// EvalContext selects which vendor population a workflow runs against.
type EvalContext string

const (
	ContextExisting EvalContext = "existing"
	ContextNew      EvalContext = "new"
)

func ParseEvalContext(s string) (EvalContext, error) {
	switch EvalContext(strings.ToLower(strings.TrimSpace(s))) {
	case ContextExisting:
		return ContextExisting, nil
	case ContextNew:
		return ContextNew, nil
	}
	return "", NewInvalidError("context must be \"existing\" or \"new\"")
}

// QuestionSource identifies which backing set a question came from.
type QuestionSource string

const (
	SourceExisting QuestionSource = "existing"
	SourceNew      QuestionSource = "new"
	SourceShared   QuestionSource = "shared"
)

// AnswerType selects the score domain presented for a question.
type AnswerType string

const (
	AnswerScale  AnswerType = "scale"  // 1..5
	AnswerBinary AnswerType = "binary" // yes/no
)

type Vendor struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsNew     bool      `json:"is_new"`
	Discarded bool      `json:"discarded"`
	CreatedAt time.Time `json:"created_at"`
}

// Question is immutable once created and read-only for evaluators.
type Question struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Weight     float64        `json:"weight"`
	Criteria   string         `json:"criteria"`
	Source     QuestionSource `json:"source"`
	AnswerType AnswerType     `json:"answer_type"`
}

// PrequalQuestion is a yes/no compliance screening question.
type PrequalQuestion struct {
	ID       string `json:"id"`
	Criteria string `json:"criteria"`
	Text     string `json:"text"`
}

// PrequalAnswer lives only inside a workflow; it is never persisted.
type PrequalAnswer struct {
	Step    int    `json:"step"`
	Value   string `json:"value"` // "yes" or "no"
	Comment string `json:"comment,omitempty"`
}

// DiscardRecord is append-only: exactly one per disqualification event.
type DiscardRecord struct {
	ID          string      `json:"id"`
	VendorID    string      `json:"vendor_id"`
	VendorName  string      `json:"vendor_name"`
	Reason      string      `json:"reason"`
	DiscardedBy string      `json:"discarded_by"`
	DiscardedAt time.Time   `json:"discarded_at"`
	Context     EvalContext `json:"context"`
}

type EvaluationResponse struct {
	QuestionID string  `json:"question_id"`
	Score      float64 `json:"score"`
	Weight     float64 `json:"weight"`
	Text       string  `json:"text"`
}

// EvaluationRecord is created once per completed evaluation and never
// edited or deleted afterwards.
type EvaluationRecord struct {
	ID               string                        `json:"id"`
	UserID           string                        `json:"user_id"`
	EvaluatorName    string                        `json:"evaluator_name"`
	VendorID         string                        `json:"vendor_id"`
	VendorName       string                        `json:"vendor_name"`
	Responses        map[string]EvaluationResponse `json:"responses"`
	TotalScore       float64                       `json:"total_score"`
	DepartmentScores map[string]float64            `json:"department_scores"`
	SubmittedAt      time.Time                     `json:"submitted_at"`
}

type AccessFlags struct {
	Prerequisite bool `json:"prerequisite"`
	Evaluation   bool `json:"evaluation"`
}

type UserAccess struct {
	UID        string      `json:"uid"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Role       string      `json:"role"` // "employee" or "admin"
	Department string      `json:"department"`
	Access     AccessFlags `json:"access"`
}

// EvaluationWindow is the admin-managed singleton gating scored evaluations.
type EvaluationWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
