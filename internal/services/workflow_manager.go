package services

import (
	"sync"
	"time"
)

// WorkflowStore is the union of persistence the two workflows need.
type WorkflowStore interface {
	PrequalStore
	EvaluationStore
}

// WorkflowManager owns the per-user workflow instances. Each user session
// holds at most one pre-qualification and one scored evaluation workflow;
// state is never shared across sessions.
type WorkflowManager struct {
	mu      sync.Mutex
	prequal map[string]*PrequalWorkflow
	evals   map[string]*EvaluationWorkflow

	store     WorkflowStore
	questions *QuestionService
	access    *AccessService
	settings  *SettingsService
	vendors   *VendorService
	now       func() time.Time
}

func NewWorkflowManager(store WorkflowStore, questions *QuestionService, access *AccessService, settings *SettingsService, vendors *VendorService) *WorkflowManager {
	return &WorkflowManager{
		prequal:   map[string]*PrequalWorkflow{},
		evals:     map[string]*EvaluationWorkflow{},
		store:     store,
		questions: questions,
		access:    access,
		settings:  settings,
		vendors:   vendors,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// StartPrequal opens a pre-qualification workflow for the vendor. Users
// without the prerequisite capability skip the screening entirely: the
// caller should proceed straight to StartEvaluation.
func (m *WorkflowManager) StartPrequal(uid, vendorID string, evalCtx EvalContext) (*PrequalWorkflow, bool, error) {
	vendor, err := m.vendors.Gate(uid, vendorID)
	if err != nil {
		return nil, false, err
	}
	if !m.access.RequiresPrerequisite(uid) {
		return nil, true, nil
	}
	qs, err := m.questions.LoadPrequalQuestions()
	if err != nil {
		return nil, false, err
	}
	w := NewPrequalWorkflow(m.store, uid, vendor, evalCtx, qs)
	m.mu.Lock()
	m.prequal[uid] = w
	m.mu.Unlock()
	return w, false, nil
}

// Prequal returns the user's active pre-qualification workflow.
func (m *WorkflowManager) Prequal(uid string) (*PrequalWorkflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.prequal[uid]
	if !ok {
		return nil, NewNotFoundError("no active pre-qualification workflow")
	}
	return w, nil
}

// ExitPrequal abandons the screening without persisting partial state.
func (m *WorkflowManager) ExitPrequal(uid string) {
	m.mu.Lock()
	delete(m.prequal, uid)
	m.mu.Unlock()
}

// StartEvaluation opens a scored evaluation workflow. Entry checks run in
// order: capability, evaluation window, vendor selection gate, question
// load. A user without the evaluation capability gets the terminal
// access-denied workflow rather than an error.
func (m *WorkflowManager) StartEvaluation(uid, vendorID string, evalCtx EvalContext) (*EvaluationWorkflow, error) {
	if !m.access.AllowsEvaluation(uid) {
		w := NewAccessDeniedWorkflow(uid)
		m.mu.Lock()
		m.evals[uid] = w
		m.mu.Unlock()
		return w, nil
	}
	if err := m.settings.CheckOpen(m.now()); err != nil {
		return nil, err
	}
	vendor, err := m.vendors.Gate(uid, vendorID)
	if err != nil {
		return nil, err
	}
	qs, err := m.questions.LoadQuestions(evalCtx)
	if err != nil {
		return nil, err
	}
	w := NewEvaluationWorkflow(m.store, uid, vendor, evalCtx, qs)
	w.evaluatorName = m.access.EvaluatorName
	w.department = func(id string) string {
		u, err := m.access.Resolve(id)
		if err != nil {
			return ""
		}
		return u.Department
	}
	m.mu.Lock()
	m.evals[uid] = w
	m.mu.Unlock()
	return w, nil
}

// Evaluation returns the user's active scored evaluation workflow.
func (m *WorkflowManager) Evaluation(uid string) (*EvaluationWorkflow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.evals[uid]
	if !ok {
		return nil, NewNotFoundError("no active evaluation workflow")
	}
	return w, nil
}

// ExitEvaluation discards all transient evaluation state for the user.
func (m *WorkflowManager) ExitEvaluation(uid string) {
	m.mu.Lock()
	delete(m.evals, uid)
	m.mu.Unlock()
}
