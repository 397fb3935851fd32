package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/iscore/vendoreval/internal/services"
)

// MemoryStore keeps every collection in mutex-guarded maps. It backs tests
// and local development; evaluation/vendor semantics match the SQLite store.
type MemoryStore struct {
	mu           sync.RWMutex
	vendors      map[string]*services.Vendor
	vendorOrder  []string
	questions    map[services.QuestionSource][]*services.Question
	prequal      []*services.PrequalQuestion
	credentials  map[string]*services.Credential // by lowercase email
	users        map[string]*services.UserAccess // by uid
	evaluations  []*services.EvaluationRecord
	discards     []*services.DiscardRecord
	window       *services.EvaluationWindow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vendors:     map[string]*services.Vendor{},
		questions:   map[services.QuestionSource][]*services.Question{},
		credentials: map[string]*services.Credential{},
		users:       map[string]*services.UserAccess{},
	}
}

func (s *MemoryStore) AddVendor(v *services.Vendor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vendors[v.ID]; !ok {
		s.vendorOrder = append(s.vendorOrder, v.ID)
	}
	s.vendors[v.ID] = v
	return nil
}

func (s *MemoryStore) GetVendor(id string) (*services.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vendors[id], nil
}

func (s *MemoryStore) ListVendors() ([]*services.Vendor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Vendor, 0, len(s.vendorOrder))
	for _, id := range s.vendorOrder {
		out = append(out, s.vendors[id])
	}
	return out, nil
}

func (s *MemoryStore) MarkVendorDiscarded(vendorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vendors[vendorID]
	if !ok {
		return services.NewNotFoundError("vendor not found")
	}
	v.Discarded = true
	return nil
}

func (s *MemoryStore) AddQuestion(q *services.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.Source] = append(s.questions[q.Source], q)
	return nil
}

func (s *MemoryStore) ListQuestions(source services.QuestionSource) ([]*services.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.Question, 0, len(s.questions[source]))
	for _, q := range s.questions[source] {
		cp := *q
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) AddPrequalQuestion(q *services.PrequalQuestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prequal = append(s.prequal, q)
	return nil
}

func (s *MemoryStore) ListPrequalQuestions() ([]*services.PrequalQuestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*services.PrequalQuestion(nil), s.prequal...), nil
}

func (s *MemoryStore) AddCredential(c *services.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[strings.ToLower(c.Email)] = c
	return nil
}

func (s *MemoryStore) FindCredentialByEmail(email string) (*services.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentials[strings.ToLower(email)], nil
}

func (s *MemoryStore) AddUser(u *services.UserAccess) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UID] = u
	return nil
}

func (s *MemoryStore) FindUserByUID(uid string) (*services.UserAccess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[uid], nil
}

func (s *MemoryStore) ListUsers() ([]*services.UserAccess, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*services.UserAccess, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UID < out[j].UID })
	return out, nil
}

// UpdateUserAccess is last-write-wins; concurrent admin toggles are not
// conflict-detected, matching the backing store's semantics.
func (s *MemoryStore) UpdateUserAccess(uid string, access services.AccessFlags) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[uid]
	if !ok {
		return services.NewNotFoundError("user not found")
	}
	u.Access = access
	return nil
}

// AddEvaluation rejects a second record for the same (user, vendor) pair so
// a duplicate submission cannot slip past the selection gate.
func (s *MemoryStore) AddEvaluation(rec *services.EvaluationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.evaluations {
		if existing.UserID == rec.UserID && existing.VendorID == rec.VendorID {
			return services.NewConflictError("evaluation already submitted for this vendor")
		}
	}
	s.evaluations = append(s.evaluations, rec)
	return nil
}

func (s *MemoryStore) ListEvaluations() ([]*services.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*services.EvaluationRecord(nil), s.evaluations...), nil
}

func (s *MemoryStore) ListEvaluationsByUser(uid string) ([]*services.EvaluationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.EvaluationRecord{}
	for _, rec := range s.evaluations {
		if rec.UserID == uid {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) AddDiscard(rec *services.DiscardRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discards = append(s.discards, rec)
	return nil
}

func (s *MemoryStore) ListDiscards(ctx services.EvalContext) ([]*services.DiscardRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*services.DiscardRecord{}
	for _, rec := range s.discards {
		if rec.Context == ctx {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetWindow() (*services.EvaluationWindow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.window == nil {
		return nil, nil
	}
	cp := *s.window
	return &cp, nil
}

func (s *MemoryStore) SaveWindow(w *services.EvaluationWindow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.window = &cp
	return nil
}
