package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/domain"
	"github.com/vyomverma2873-dotcom/quicksnack-auth/internal/sender"
	apperrors "github.com/vyomverma2873-dotcom/quicksnack-auth/pkg/errors"
)

// testBcryptCost keeps hashing fast in tests.
const testBcryptCost = 4

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- In-memory ticket repository ---

type memTicketRepo struct {
	mu      sync.Mutex
	byPair  map[string]*domain.Ticket
	failing bool
}

func newMemTicketRepo() *memTicketRepo {
	return &memTicketRepo{byPair: make(map[string]*domain.Ticket)}
}

func pairKey(email string, purpose domain.Purpose) string {
	return email + "|" + string(purpose)
}

func (r *memTicketRepo) Replace(_ context.Context, t *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("storage unavailable")
	}
	cp := *t
	r.byPair[pairKey(t.Email, t.Purpose)] = &cp
	return nil
}

func (r *memTicketRepo) Get(_ context.Context, email string, purpose domain.Purpose) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byPair[pairKey(email, purpose)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTicketRepo) IncrementAttempts(_ context.Context, id string, max int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byPair {
		if t.ID == id {
			if t.Attempts >= max {
				return 0, apperrors.ErrNotFound
			}
			t.Attempts++
			return t.Attempts, nil
		}
	}
	return 0, apperrors.ErrNotFound
}

func (r *memTicketRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, t := range r.byPair {
		if t.ID == id {
			delete(r.byPair, k)
			return nil
		}
	}
	return nil
}

func (r *memTicketRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for k, t := range r.byPair {
		if !t.ExpiresAt.After(before) {
			delete(r.byPair, k)
			removed++
		}
	}
	return removed, nil
}

// expire backdates the ticket for a pair so the next check sees it expired.
func (r *memTicketRepo) expire(email string, purpose domain.Purpose) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.byPair[pairKey(email, purpose)]; ok {
		t.ExpiresAt = time.Now().UTC().Add(-time.Second)
	}
}

func (r *memTicketRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPair)
}

// --- In-memory user repository ---

type memUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byEmail: make(map[string]*domain.User)}
}

func (r *memUserRepo) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return apperrors.AlreadyExists("user", "email", u.Email)
	}
	cp := *u
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byEmail {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) Update(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, existing := range r.byEmail {
		if existing.ID == u.ID {
			cp := *u
			delete(r.byEmail, email)
			r.byEmail[u.Email] = &cp
			return nil
		}
	}
	return apperrors.NotFound("user", u.ID)
}

// --- Fake delivery channel ---

var codeRe = regexp.MustCompile(`\b(\d{6})\b`)

type fakeSender struct {
	mu   sync.Mutex
	fail bool
	last *sender.Message
	sent int
}

func (s *fakeSender) Name() string { return "fake-email" }

func (s *fakeSender) Send(_ context.Context, msg *sender.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("smtp relay down")
	}
	cp := *msg
	s.last = &cp
	s.sent++
	return nil
}

// lastCode extracts the 6-digit code from the most recent message body.
func (s *fakeSender) lastCode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return ""
	}
	return codeRe.FindString(s.last.Body)
}

// --- Fake rate limiter ---

type fakeLimiter struct {
	deny  bool
	calls int
}

func (l *fakeLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	l.calls++
	return !l.deny, nil
}

func (l *fakeLimiter) Reset(context.Context, string) error { return nil }

// --- Fake event publisher ---

type fakePublisher struct {
	mu              sync.Mutex
	registered      int
	updated         int
	passwordChanged int
	passwordReset   int
	err             error
}

func (p *fakePublisher) PublishUserRegistered(context.Context, *domain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered++
	return p.err
}

func (p *fakePublisher) PublishUserUpdated(context.Context, *domain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updated++
	return p.err
}

func (p *fakePublisher) PublishPasswordChanged(context.Context, string, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwordChanged++
	return p.err
}

func (p *fakePublisher) PublishPasswordReset(context.Context, string, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.passwordReset++
	return p.err
}
