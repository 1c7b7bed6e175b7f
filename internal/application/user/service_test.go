package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	domain "github.com/synexstock/orderflow/internal/domain/user"
	"github.com/synexstock/orderflow/internal/infrastructure/memory"
)

type stubIDGen struct{ n int }

func (g *stubIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("user-%d", g.n)
}

type stubIssuer struct {
	token   string
	err     error
	subject string
	roles   []string
}

func (i *stubIssuer) Issue(subject string, roles []string) (string, error) {
	i.subject = subject
	i.roles = roles
	return i.token, i.err
}

func newTestService(issuer *stubIssuer) *Service {
	return NewService(memory.NewUserRepository(), issuer, &stubIDGen{})
}

func TestSignupDefaultsToUserRole(t *testing.T) {
	svc := newTestService(&stubIssuer{})

	u, err := svc.Signup(context.Background(), SignupInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if len(u.Roles) != 1 || u.Roles[0] != domain.RoleUser {
		t.Errorf("expected default ROLE_USER, got %v", u.Roles)
	}
	if u.PasswordHash == "" || u.PasswordHash == "secret" {
		t.Error("password must be stored hashed")
	}
}

func TestSignupRejectsUnknownRole(t *testing.T) {
	svc := newTestService(&stubIssuer{})

	_, err := svc.Signup(context.Background(), SignupInput{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "secret",
		Roles:    []string{"ROLE_SUPERUSER"},
	})
	if !errors.Is(err, domain.ErrInvalidRole) {
		t.Errorf("expected ErrInvalidRole, got %v", err)
	}
}

func TestSignupPasswordBounds(t *testing.T) {
	svc := newTestService(&stubIssuer{})

	for _, password := range []string{"ab", string(make([]byte, 41))} {
		_, err := svc.Signup(context.Background(), SignupInput{
			Username: "carol",
			Email:    "carol@example.com",
			Password: password,
		})
		if !errors.Is(err, domain.ErrInvalidPassword) {
			t.Errorf("password %q: expected ErrInvalidPassword, got %v", password, err)
		}
	}
}

func TestSignupDuplicateUsername(t *testing.T) {
	svc := newTestService(&stubIssuer{})

	if _, err := svc.Signup(context.Background(), SignupInput{Username: "dave", Email: "dave@example.com", Password: "secret"}); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := svc.Signup(context.Background(), SignupInput{Username: "dave", Email: "other@example.com", Password: "secret"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestService(&stubIssuer{})

	if _, err := svc.Signup(context.Background(), SignupInput{Username: "erin", Email: "erin@example.com", Password: "secret"}); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := svc.Signup(context.Background(), SignupInput{Username: "erin2", Email: "erin@example.com", Password: "secret"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got %v", err)
	}
}

func TestLoginIssuesTokenWithRoles(t *testing.T) {
	issuer := &stubIssuer{token: "signed-token"}
	svc := newTestService(issuer)

	if _, err := svc.Signup(context.Background(), SignupInput{
		Username: "frank",
		Email:    "frank@example.com",
		Password: "secret",
		Roles:    []string{domain.RoleAdmin, domain.RoleManager},
	}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	token, u, err := svc.Login(context.Background(), "frank", "secret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token != "signed-token" {
		t.Errorf("unexpected token %q", token)
	}
	if u.Username != "frank" {
		t.Errorf("unexpected user %q", u.Username)
	}
	if issuer.subject != "frank" || len(issuer.roles) != 2 {
		t.Errorf("issuer got subject=%q roles=%v", issuer.subject, issuer.roles)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(&stubIssuer{token: "t"})

	if _, err := svc.Signup(context.Background(), SignupInput{Username: "gina", Email: "gina@example.com", Password: "secret"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "gina", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestService(&stubIssuer{token: "t"})

	if _, _, err := svc.Login(context.Background(), "nobody", "secret"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestEmailOf(t *testing.T) {
	svc := newTestService(&stubIssuer{})

	if _, err := svc.Signup(context.Background(), SignupInput{Username: "henry", Email: "henry@example.com", Password: "secret"}); err != nil {
		t.Fatalf("signup: %v", err)
	}

	email, err := svc.EmailOf(context.Background(), "henry")
	if err != nil {
		t.Fatalf("email lookup failed: %v", err)
	}
	if email != "henry@example.com" {
		t.Errorf("got %q", email)
	}

	if _, err := svc.EmailOf(context.Background(), "ghost"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash := hashPassword("hunter2")
	if !verifyPassword(hash, "hunter2") {
		t.Error("correct password rejected")
	}
	if verifyPassword(hash, "hunter3") {
		t.Error("wrong password accepted")
	}
	if verifyPassword("not-a-hash", "hunter2") {
		t.Error("malformed stored hash accepted")
	}

	// Salting must make two hashes of the same password differ.
	if hash == hashPassword("hunter2") {
		t.Error("expected unique salt per hash")
	}
}
