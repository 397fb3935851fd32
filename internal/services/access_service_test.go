package services

import "testing"

type accessStubStore struct {
	users map[string]*UserAccess
}

func newAccessStubStore(users ...*UserAccess) *accessStubStore {
	s := &accessStubStore{users: map[string]*UserAccess{}}
	for _, u := range users {
		s.users[u.UID] = u
	}
	return s
}

func (s *accessStubStore) FindUserByUID(uid string) (*UserAccess, error) {
	if u, ok := s.users[uid]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, nil
}

func (s *accessStubStore) ListUsers() ([]*UserAccess, error) {
	out := []*UserAccess{}
	for _, u := range s.users {
		copy := *u
		out = append(out, &copy)
	}
	return out, nil
}

func (s *accessStubStore) UpdateUserAccess(uid string, access AccessFlags) error {
	u, ok := s.users[uid]
	if !ok {
		return NewNotFoundError("user not found")
	}
	u.Access = access
	return nil
}

func TestAccessResolveUnknownUser(t *testing.T) {
	svc := NewAccessService(newAccessStubStore())
	if _, err := svc.Resolve("ghost"); err == nil {
		t.Fatalf("expected not found for unknown user")
	}
}

func TestAccessFlagsFailClosed(t *testing.T) {
	svc := NewAccessService(newAccessStubStore(
		&UserAccess{UID: "u1", Name: "Dana", Access: AccessFlags{Prerequisite: true, Evaluation: true}},
	))
	if !svc.RequiresPrerequisite("u1") || !svc.AllowsEvaluation("u1") {
		t.Fatalf("expected granted flags for u1")
	}
	if svc.RequiresPrerequisite("ghost") || svc.AllowsEvaluation("ghost") {
		t.Fatalf("unknown user must have no capabilities")
	}
}

func TestToggleAccess(t *testing.T) {
	store := newAccessStubStore(&UserAccess{UID: "u1", Name: "Dana"})
	svc := NewAccessService(store)

	u, err := svc.ToggleAccess("u1", "evaluation")
	if err != nil {
		t.Fatalf("ToggleAccess error: %v", err)
	}
	if !u.Access.Evaluation {
		t.Fatalf("expected evaluation enabled after toggle")
	}
	u, err = svc.ToggleAccess("u1", "evaluation")
	if err != nil {
		t.Fatalf("ToggleAccess error: %v", err)
	}
	if u.Access.Evaluation {
		t.Fatalf("expected evaluation disabled after second toggle")
	}

	if _, err := svc.ToggleAccess("u1", "bogus"); err == nil {
		t.Fatalf("expected invalid error for unknown key")
	}
	if _, err := svc.ToggleAccess("ghost", "evaluation"); err == nil {
		t.Fatalf("expected not found for unknown user")
	}
}

func TestEvaluatorNameFallback(t *testing.T) {
	svc := NewAccessService(newAccessStubStore(
		&UserAccess{UID: "u1", Name: "Dana"},
		&UserAccess{UID: "u2"},
	))
	if got := svc.EvaluatorName("u1"); got != "Dana" {
		t.Fatalf("EvaluatorName = %q, want Dana", got)
	}
	if got := svc.EvaluatorName("u2"); got != "Unknown" {
		t.Fatalf("EvaluatorName for blank name = %q, want Unknown", got)
	}
	if got := svc.EvaluatorName("ghost"); got != "Unknown" {
		t.Fatalf("EvaluatorName for missing user = %q, want Unknown", got)
	}
}
