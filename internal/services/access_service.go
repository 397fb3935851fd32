package services

// AccessStore abstracts the user collection reads and the admin write path.
type AccessStore interface {
	FindUserByUID(uid string) (*UserAccess, error)
	ListUsers() ([]*UserAccess, error)
	UpdateUserAccess(uid string, access AccessFlags) error
}

// AccessService resolves the signed-in principal's capability flags and
// hosts the admin toggle path. A missing user record grants nothing.
type AccessService struct {
	store AccessStore
}

func NewAccessService(store AccessStore) *AccessService {
	return &AccessService{store: store}
}

func (s *AccessService) Resolve(uid string) (*UserAccess, error) {
	u, err := s.store.FindUserByUID(uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, NewNotFoundError("user not found")
	}
	return u, nil
}

// RequiresPrerequisite reports whether the pre-qualification step applies to
// this user. Unknown users fail closed: no prerequisite step, no evaluation.
func (s *AccessService) RequiresPrerequisite(uid string) bool {
	u, err := s.store.FindUserByUID(uid)
	if err != nil || u == nil {
		return false
	}
	return u.Access.Prerequisite
}

// AllowsEvaluation reports whether the user may enter the scored evaluation.
func (s *AccessService) AllowsEvaluation(uid string) bool {
	u, err := s.store.FindUserByUID(uid)
	if err != nil || u == nil {
		return false
	}
	return u.Access.Evaluation
}

func (s *AccessService) ListUsers() ([]*UserAccess, error) {
	return s.store.ListUsers()
}

// ToggleAccess flips one capability flag for a user. Concurrent admin
// toggles are last-write-wins; the store offers no conflict detection.
func (s *AccessService) ToggleAccess(uid, key string) (*UserAccess, error) {
	u, err := s.Resolve(uid)
	if err != nil {
		return nil, err
	}
	access := u.Access
	switch key {
	case "prerequisite":
		access.Prerequisite = !access.Prerequisite
	case "evaluation":
		access.Evaluation = !access.Evaluation
	default:
		return nil, NewInvalidError("unknown access key: " + key)
	}
	if err := s.store.UpdateUserAccess(uid, access); err != nil {
		return nil, err
	}
	u.Access = access
	return u, nil
}

// EvaluatorName looks up a display name for an evaluator, falling back to
// "Unknown".
func (s *AccessService) EvaluatorName(uid string) string {
	u, err := s.store.FindUserByUID(uid)
	if err != nil || u == nil || u.Name == "" {
		return "Unknown"
	}
	return u.Name
}
