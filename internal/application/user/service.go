package user

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	domain "github.com/synexstock/orderflow/internal/domain/user"
	"github.com/synexstock/orderflow/internal/pkg/logging"
	"go.uber.org/zap"
)

// TokenIssuer abstracts the token service so login does not depend on the
// signing implementation.
type TokenIssuer interface {
	Issue(subject string, roles []string) (string, error)
}

type IDGenerator interface {
	NewID() string
}

type Service struct {
	repo   domain.Repository
	tokens TokenIssuer
	idGen  IDGenerator
}

func NewService(repo domain.Repository, tokens TokenIssuer, idGen IDGenerator) *Service {
	return &Service{repo: repo, tokens: tokens, idGen: idGen}
}

type SignupInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

// Signup registers a user. Roles must come from the closed role set; an
// empty request defaults to ROLE_USER. Duplicate username or email is a
// conflict.
func (s *Service) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	if len(input.Password) < 3 || len(input.Password) > 40 {
		return nil, domain.ErrInvalidPassword
	}

	roles := input.Roles
	if len(roles) == 0 {
		roles = []string{domain.RoleUser}
	}
	for _, role := range roles {
		if !domain.ValidRoles[role] {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidRole, role)
		}
	}

	if taken, err := s.repo.ExistsByUsername(ctx, input.Username); err != nil {
		return nil, fmt.Errorf("user: username check: %w", err)
	} else if taken {
		return nil, domain.ErrUsernameTaken
	}
	if taken, err := s.repo.ExistsByEmail(ctx, input.Email); err != nil {
		return nil, fmt.Errorf("user: email check: %w", err)
	} else if taken {
		return nil, domain.ErrEmailTaken
	}

	u := &domain.User{
		ID:           s.idGen.NewID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashPassword(input.Password),
		Roles:        roles,
	}
	if err := s.repo.Insert(ctx, u); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("user_registered",
		zap.String("username", u.Username),
		zap.Strings("roles", u.Roles),
	)
	return u, nil
}

// Login verifies credentials and issues a token carrying the user's roles.
func (s *Service) Login(ctx context.Context, username, password string) (token string, u *domain.User, err error) {
	u, err = s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	if !verifyPassword(u.PasswordHash, password) {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err = s.tokens.Issue(u.Username, u.Roles)
	if err != nil {
		return "", nil, fmt.Errorf("user: issue token: %w", err)
	}
	return token, u, nil
}

// EmailOf resolves the email address for a username.
func (s *Service) EmailOf(ctx context.Context, username string) (string, error) {
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

// Salted SHA-256 stands in for a real KDF; hashing mechanics are outside
// this service's scope and the format (salt$digest) leaves room to swap
// the algorithm.
func hashPassword(password string) string {
	salt := make([]byte, 16)
	_, _ = rand.Read(salt)
	digest := sha256.Sum256(append(salt, []byte(password)...))
	return hex.EncodeToString(salt) + "$" + hex.EncodeToString(digest[:])
}

func verifyPassword(stored, password string) bool {
	parts := strings.SplitN(stored, "$", 2)
	if len(parts) != 2 {
		return false
	}
	salt, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	digest := sha256.Sum256(append(salt, []byte(password)...))
	return subtle.ConstantTimeCompare([]byte(hex.EncodeToString(digest[:])), []byte(parts[1])) == 1
}
