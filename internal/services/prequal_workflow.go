package services

import (
	"strings"
	"time"
)

// PrequalState is the pre-qualification machine state.
type PrequalState string

const (
	PrequalAwaitingAnswer PrequalState = "awaiting_answer"
	PrequalDisqualified   PrequalState = "disqualified"
	PrequalPassed         PrequalState = "passed"
)

// Disqualification reasons recorded on the discard record.
const (
	ReasonRegulatoryNoncompliance = "Regulatory noncompliance"
	ReasonPrequalificationFailure = "Prequalification failure"
)

// PrequalStore persists the disqualification outcome.
type PrequalStore interface {
	AddDiscard(rec *DiscardRecord) error
	MarkVendorDiscarded(vendorID string) error
}

// PrequalWorkflow walks one evaluator through the yes/no compliance
// screening for one vendor. Answers stay in memory until the workflow
// either disqualifies the vendor (one discard record) or passes; exiting
// persists nothing.
type PrequalWorkflow struct {
	userID     string
	vendorID   string
	vendorName string
	evalCtx    EvalContext
	questions  []*PrequalQuestion
	answers    map[int]PrequalAnswer
	step       int
	state      PrequalState
	discard    *DiscardRecord

	store PrequalStore
	now   func() time.Time
	idGen func(n int) string
}

// NewPrequalWorkflow starts the screening. An empty question list passes
// immediately rather than blocking the evaluator.
func NewPrequalWorkflow(store PrequalStore, userID string, vendor *Vendor, evalCtx EvalContext, questions []*PrequalQuestion) *PrequalWorkflow {
	w := &PrequalWorkflow{
		userID:     userID,
		vendorID:   vendor.ID,
		vendorName: vendor.Name,
		evalCtx:    evalCtx,
		questions:  questions,
		answers:    map[int]PrequalAnswer{},
		state:      PrequalAwaitingAnswer,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
		idGen:      shortID,
	}
	if len(questions) == 0 {
		w.state = PrequalPassed
	}
	return w
}

func (w *PrequalWorkflow) State() PrequalState { return w.state }
func (w *PrequalWorkflow) Step() int           { return w.step }
func (w *PrequalWorkflow) VendorID() string    { return w.vendorID }
func (w *PrequalWorkflow) VendorName() string  { return w.vendorName }
func (w *PrequalWorkflow) Context() EvalContext {
	return w.evalCtx
}

// Current returns the question awaiting an answer, or nil outside
// PrequalAwaitingAnswer.
func (w *PrequalWorkflow) Current() *PrequalQuestion {
	if w.state != PrequalAwaitingAnswer || w.step >= len(w.questions) {
		return nil
	}
	return w.questions[w.step]
}

// Discard returns the record written on disqualification, if any.
func (w *PrequalWorkflow) Discard() *DiscardRecord { return w.discard }

// Answer records a yes/no answer for the current step and advances the
// machine. A "monopoly" criterion answered "yes" requires a non-empty
// alternative-vendor comment. A "legal" criterion answered "no"
// disqualifies for regulatory noncompliance; any other criterion answered
// "no" disqualifies as a prequalification failure.
func (w *PrequalWorkflow) Answer(value, comment string) error {
	if w.state != PrequalAwaitingAnswer {
		return NewInvalidError("workflow is not awaiting an answer")
	}
	value = strings.ToLower(strings.TrimSpace(value))
	if value != "yes" && value != "no" {
		return NewInvalidError("please answer yes or no")
	}

	q := w.questions[w.step]
	criterion := strings.ToLower(strings.TrimSpace(q.Criteria))
	switch criterion {
	case "monopoly":
		if value == "yes" && strings.TrimSpace(comment) == "" {
			return NewInvalidError("please specify an alternative vendor for monopoly risk")
		}
	case "legal":
		if value == "no" {
			return w.disqualify(ReasonRegulatoryNoncompliance)
		}
	default:
		if value == "no" {
			return w.disqualify(ReasonPrequalificationFailure)
		}
	}

	w.answers[w.step] = PrequalAnswer{Step: w.step, Value: value, Comment: strings.TrimSpace(comment)}
	w.step++
	if w.step >= len(w.questions) {
		w.state = PrequalPassed
	}
	return nil
}

// Back returns to the previous step without discarding prior answers.
func (w *PrequalWorkflow) Back() error {
	if w.state != PrequalAwaitingAnswer {
		return NewInvalidError("workflow is not awaiting an answer")
	}
	if w.step == 0 {
		return NewInvalidError("already at the first question")
	}
	w.step--
	return nil
}

// Answers exposes the collected answers (for showing prior selections).
func (w *PrequalWorkflow) Answers() map[int]PrequalAnswer {
	out := make(map[int]PrequalAnswer, len(w.answers))
	for k, v := range w.answers {
		out[k] = v
	}
	return out
}

// disqualify writes exactly one discard record and aborts the remaining
// steps. The transition happens only once the record is persisted.
func (w *PrequalWorkflow) disqualify(reason string) error {
	rec := &DiscardRecord{
		ID:          w.idGen(8),
		VendorID:    w.vendorID,
		VendorName:  w.vendorName,
		Reason:      reason,
		DiscardedBy: w.userID,
		DiscardedAt: w.now(),
		Context:     w.evalCtx,
	}
	if err := w.store.AddDiscard(rec); err != nil {
		return err
	}
	if err := w.store.MarkVendorDiscarded(w.vendorID); err != nil {
		return err
	}
	w.discard = rec
	w.state = PrequalDisqualified
	return nil
}
