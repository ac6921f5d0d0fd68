package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

type memoryTokenRepo struct {
	tokens map[string]tokenrepo.Token
	failOn int
	calls  int
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{tokens: make(map[string]tokenrepo.Token)}
}

func (r *memoryTokenRepo) Create(_ context.Context, token tokenrepo.Token) error {
	r.calls++
	if _, exists := r.tokens[token.Token]; exists {
		return domain.ErrAlreadyExists
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *memoryTokenRepo) Get(_ context.Context, token string) (*tokenrepo.Token, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := t
	return &clone, nil
}

func (r *memoryTokenRepo) Delete(_ context.Context, token string) error {
	if _, ok := r.tokens[token]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tokens, token)
	return nil
}

type memoryUsers map[string]domain.User

func (m memoryUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := m[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func TestIssueAndAuthenticate(t *testing.T) {
	tokens := newMemoryTokenRepo()
	svc := New(memoryUsers{"u1": {ID: "u1", Email: "a@example.com", Role: domain.RoleAdmin}}, tokens)

	tok, exp, err := svc.Issue(context.Background(), "u1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok == "" || exp.Before(time.Now()) {
		t.Fatalf("unexpected token %q exp %v", tok, exp)
	}

	u, err := svc.Authenticate(context.Background(), tok)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if u.ID != "u1" || !u.IsAdmin() {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := svc.Authenticate(context.Background(), "nope"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token for blank, got %v", err)
	}
}

func TestAuthenticate_ExpiredTokenIsDeleted(t *testing.T) {
	tokens := newMemoryTokenRepo()
	tokens.tokens["old"] = tokenrepo.Token{Token: "old", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)}
	svc := New(memoryUsers{"u1": {ID: "u1"}}, tokens)

	if _, err := svc.Authenticate(context.Background(), "old"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
	if _, ok := tokens.tokens["old"]; ok {
		t.Fatalf("expected expired token to be deleted")
	}
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	tokens := newMemoryTokenRepo()
	tokens.tokens["t"] = tokenrepo.Token{Token: "t", UserID: "ghost", ExpiresAt: time.Now().Add(time.Hour)}
	svc := New(memoryUsers{}, tokens)

	if _, err := svc.Authenticate(context.Background(), "t"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestIssue_RetriesCollisions(t *testing.T) {
	tokens := newMemoryTokenRepo()
	tokens.tokens["dup"] = tokenrepo.Token{Token: "dup"}
	svc := New(memoryUsers{}, tokens)

	seq := []string{"dup", "dup", "fresh"}
	orig := randomToken
	randomToken = func() (string, error) {
		next := seq[0]
		seq = seq[1:]
		return next, nil
	}
	t.Cleanup(func() { randomToken = orig })

	tok, _, err := svc.Issue(context.Background(), "u1", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok != "fresh" || tokens.calls != 3 {
		t.Fatalf("expected third attempt to win, got %q after %d calls", tok, tokens.calls)
	}
}

func TestIssue_GivesUpAfterRepeatedCollisions(t *testing.T) {
	tokens := newMemoryTokenRepo()
	tokens.tokens["dup"] = tokenrepo.Token{Token: "dup"}
	svc := New(memoryUsers{}, tokens)

	orig := randomToken
	randomToken = func() (string, error) { return "dup", nil }
	t.Cleanup(func() { randomToken = orig })

	if _, _, err := svc.Issue(context.Background(), "u1", time.Hour); err == nil {
		t.Fatalf("expected collision error")
	}
	if tokens.calls != issueAttempts {
		t.Fatalf("expected %d attempts, got %d", issueAttempts, tokens.calls)
	}
}
