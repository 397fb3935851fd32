package store

import (
	"github.com/iscore/vendoreval/internal/services"
)

// Store is the persistence boundary: the logical collections of the backing
// document store, typed at the application edge. Two implementations exist,
// the in-memory store (tests, dev) and the SQLite store.
type Store interface {
	AddVendor(v *services.Vendor) error
	GetVendor(id string) (*services.Vendor, error)
	ListVendors() ([]*services.Vendor, error)
	MarkVendorDiscarded(vendorID string) error

	AddQuestion(q *services.Question) error
	ListQuestions(source services.QuestionSource) ([]*services.Question, error)
	AddPrequalQuestion(q *services.PrequalQuestion) error
	ListPrequalQuestions() ([]*services.PrequalQuestion, error)

	AddCredential(c *services.Credential) error
	FindCredentialByEmail(email string) (*services.Credential, error)
	AddUser(u *services.UserAccess) error
	FindUserByUID(uid string) (*services.UserAccess, error)
	ListUsers() ([]*services.UserAccess, error)
	UpdateUserAccess(uid string, access services.AccessFlags) error

	AddEvaluation(rec *services.EvaluationRecord) error
	ListEvaluations() ([]*services.EvaluationRecord, error)
	ListEvaluationsByUser(uid string) ([]*services.EvaluationRecord, error)

	AddDiscard(rec *services.DiscardRecord) error
	ListDiscards(ctx services.EvalContext) ([]*services.DiscardRecord, error)

	GetWindow() (*services.EvaluationWindow, error)
	SaveWindow(w *services.EvaluationWindow) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)
