package services

import (
	"strconv"
	"strings"
	"time"
)

// EvalState is the scored evaluation machine state.
type EvalState string

const (
	EvalAnswering    EvalState = "answering"
	EvalConfirming   EvalState = "confirming"
	EvalSubmitted    EvalState = "submitted"
	EvalAccessDenied EvalState = "access_denied"
)

// EvaluationStore persists completed evaluation records. AddEvaluation must
// reject a second record for the same (user, vendor) pair with a conflict
// error; double submissions from impatient clicking land there.
type EvaluationStore interface {
	AddEvaluation(rec *EvaluationRecord) error
}

// EvaluationWorkflow steps one evaluator through the scored questionnaire
// for one vendor. Scores are transient until Confirm persists the single
// immutable EvaluationRecord.
type EvaluationWorkflow struct {
	userID     string
	vendorID   string
	vendorName string
	evalCtx    EvalContext
	questions  []*Question
	responses  map[string]EvaluationResponse
	step       int
	selected   *float64
	state      EvalState
	record     *EvaluationRecord

	store         EvaluationStore
	evaluatorName func(uid string) string
	department    func(uid string) string
	now           func() time.Time
	idGen         func(n int) string
}

// NewEvaluationWorkflow assumes entry gates (capability, window, vendor
// selection) already passed; see WorkflowManager.StartEvaluation.
func NewEvaluationWorkflow(store EvaluationStore, userID string, vendor *Vendor, evalCtx EvalContext, questions []*Question) *EvaluationWorkflow {
	w := &EvaluationWorkflow{
		userID:        userID,
		vendorID:      vendor.ID,
		vendorName:    vendor.Name,
		evalCtx:       evalCtx,
		questions:     questions,
		responses:     map[string]EvaluationResponse{},
		state:         EvalAnswering,
		store:         store,
		evaluatorName: func(string) string { return "Unknown" },
		department:    func(string) string { return "" },
		now:           func() time.Time { return time.Now().UTC() },
		idGen:         shortID,
	}
	if len(questions) == 0 {
		w.state = EvalConfirming
	}
	return w
}

// NewAccessDeniedWorkflow is the terminal refusal state: the only action
// left to the caller is returning to the dashboard.
func NewAccessDeniedWorkflow(userID string) *EvaluationWorkflow {
	return &EvaluationWorkflow{userID: userID, state: EvalAccessDenied}
}

func (w *EvaluationWorkflow) State() EvalState   { return w.state }
func (w *EvaluationWorkflow) Step() int          { return w.step }
func (w *EvaluationWorkflow) VendorID() string   { return w.vendorID }
func (w *EvaluationWorkflow) VendorName() string { return w.vendorName }
func (w *EvaluationWorkflow) QuestionCount() int { return len(w.questions) }

// Current returns the question being answered, or nil outside EvalAnswering.
func (w *EvaluationWorkflow) Current() *Question {
	if w.state != EvalAnswering || w.step >= len(w.questions) {
		return nil
	}
	return w.questions[w.step]
}

// Record returns the persisted evaluation after submission, nil before.
func (w *EvaluationWorkflow) Record() *EvaluationRecord { return w.record }

// Selected returns the transient selection for the current question.
func (w *EvaluationWorkflow) Selected() *float64 { return w.selected }

// Select stores a transient score for the current question. Scale questions
// accept 1..5; binary questions accept yes/no.
func (w *EvaluationWorkflow) Select(value string) error {
	if w.state != EvalAnswering {
		return NewInvalidError("workflow is not accepting answers")
	}
	q := w.questions[w.step]
	score, err := parseScore(q, value)
	if err != nil {
		return err
	}
	w.selected = &score
	return nil
}

// Next records the selection as the response for the current question and
// advances. With no selection the step does not advance. Advancing past the
// last question moves to confirmation.
func (w *EvaluationWorkflow) Next() error {
	if w.state != EvalAnswering {
		return NewInvalidError("workflow is not accepting answers")
	}
	if w.selected == nil {
		return NewInvalidError("please select a score before proceeding")
	}
	q := w.questions[w.step]
	w.responses[q.ID] = EvaluationResponse{
		QuestionID: q.ID,
		Score:      *w.selected,
		Weight:     q.Weight,
		Text:       q.Text,
	}
	w.selected = nil
	w.step++
	if w.step >= len(w.questions) {
		w.state = EvalConfirming
		return nil
	}
	w.preloadSelection()
	return nil
}

// Back returns to the previous question. The responses map is preserved and
// the prior selection is restored so the evaluator can advance again.
func (w *EvaluationWorkflow) Back() error {
	switch w.state {
	case EvalAnswering:
		if w.step == 0 {
			return NewInvalidError("already at the first question")
		}
		w.step--
	case EvalConfirming:
		if len(w.questions) == 0 {
			return NewInvalidError("nothing to go back to")
		}
		w.state = EvalAnswering
		w.step = len(w.questions) - 1
	default:
		return NewInvalidError("workflow is not accepting answers")
	}
	w.preloadSelection()
	return nil
}

// Confirm computes the weighted total, resolves the evaluator's display
// name, and persists exactly one evaluation record. After success the
// workflow is terminal; nothing further mutates.
func (w *EvaluationWorkflow) Confirm() (*EvaluationRecord, error) {
	if w.state != EvalConfirming {
		return nil, NewInvalidError("workflow is not awaiting confirmation")
	}
	total := WeightedTotal(w.responses)
	rec := &EvaluationRecord{
		ID:            w.idGen(8),
		UserID:        w.userID,
		EvaluatorName: w.evaluatorName(w.userID),
		VendorID:      w.vendorID,
		VendorName:    w.vendorName,
		Responses:     w.responses,
		TotalScore:    total,
		SubmittedAt:   w.now(),
	}
	if dept := w.department(w.userID); dept != "" {
		rec.DepartmentScores = map[string]float64{dept: total}
	}
	if err := w.store.AddEvaluation(rec); err != nil {
		return nil, err
	}
	w.record = rec
	w.state = EvalSubmitted
	return rec, nil
}

func (w *EvaluationWorkflow) preloadSelection() {
	w.selected = nil
	if w.step >= len(w.questions) {
		return
	}
	if r, ok := w.responses[w.questions[w.step].ID]; ok {
		score := r.Score
		w.selected = &score
	}
}

func parseScore(q *Question, value string) (float64, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if q.AnswerType == AnswerBinary {
		switch value {
		case "yes":
			return BinaryScore(true), nil
		case "no":
			return BinaryScore(false), nil
		}
		return 0, NewInvalidError("this question takes a yes or no answer")
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > maxScorePerQuestion {
		return 0, NewInvalidError("score must be between 1 and 5")
	}
	return float64(n), nil
}
