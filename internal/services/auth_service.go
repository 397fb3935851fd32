package services

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type AuthStore interface {
	FindCredentialByEmail(email string) (*Credential, error)
	AddCredential(c *Credential) error
	AddUser(u *UserAccess) error
	FindUserByUID(uid string) (*UserAccess, error)
}

// Credential holds the login identity separately from the UserAccess record.
type Credential struct {
	UID       string
	Email     string
	PassHash  []byte
	CreatedAt time.Time
}

type TokenSigner func(uid, email, role string, ttl time.Duration) (string, error)

type AuthService struct {
	store     AuthStore
	now       func() time.Time
	idGen     func(prefix string, n int) string
	signToken TokenSigner
	tokenTTL  time.Duration
}

type AuthResult struct {
	Token  string
	UserID string
	Role   string
}

func NewAuthService(store AuthStore, signer TokenSigner) *AuthService {
	return &AuthService{
		store:     store,
		now:       func() time.Time { return time.Now().UTC() },
		idGen:     func(prefix string, n int) string { return prefix + shortID(n) },
		signToken: signer,
		tokenTTL:  30 * 24 * time.Hour,
	}
}

// Register creates a credential plus a UserAccess record with no granted
// capabilities; an admin enables prerequisite/evaluation afterwards.
func (s *AuthService) Register(name, email, password, department string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, NewInvalidError("name required")
	}
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	existing, err := s.store.FindCredentialByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewConflictError("email exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	uid := s.idGen("u", 7)
	now := s.now()
	if err := s.store.AddCredential(&Credential{UID: uid, Email: email, PassHash: hash, CreatedAt: now}); err != nil {
		return nil, err
	}
	user := &UserAccess{
		UID:        uid,
		Name:       name,
		Email:      email,
		Role:       "employee",
		Department: strings.TrimSpace(department),
	}
	if err := s.store.AddUser(user); err != nil {
		return nil, err
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(uid, email, user.Role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: uid, Role: user.Role}, nil
}

func (s *AuthService) Login(email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("email/password required")
	}
	c, err := s.store.FindCredentialByEmail(email)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword(c.PassHash, []byte(password)); err != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	role := "employee"
	if u, err := s.store.FindUserByUID(c.UID); err == nil && u != nil && u.Role != "" {
		role = u.Role
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(c.UID, c.Email, role, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, UserID: c.UID, Role: role}, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
