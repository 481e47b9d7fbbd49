package command

import (
	"context"
	"sync"
	"time"

	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/progression"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/quiz"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/ranked"
	"github.com/nurseprep-hub/nurseprep-progression/internal/domain/shared"
)

// In-memory fakes mirroring the persistence contracts, including version
// checks and unique-constraint behavior.

type fakeProgressRepo struct {
	mu       sync.Mutex
	records  map[string]*progression.UserProgress
	failNext int // number of upcoming UpdateVersioned calls to fail with a conflict
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: make(map[string]*progression.UserProgress)}
}

func cloneProgress(p *progression.UserProgress) *progression.UserProgress {
	c := *p
	return &c
}

func (r *fakeProgressRepo) Get(ctx context.Context, userID string) (*progression.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.records[userID]
	if !ok {
		return nil, shared.ErrProgressNotFound
	}
	return cloneProgress(p), nil
}

func (r *fakeProgressRepo) Create(ctx context.Context, p *progression.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[p.UserID]; ok {
		return shared.ErrProgressAlreadyExists
	}
	r.records[p.UserID] = cloneProgress(p)
	return nil
}

func (r *fakeProgressRepo) UpdateVersioned(ctx context.Context, p *progression.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext > 0 {
		r.failNext--
		return shared.ErrConcurrentModification
	}
	stored, ok := r.records[p.UserID]
	if !ok {
		return shared.ErrProgressNotFound
	}
	if stored.Version != p.Version {
		return shared.ErrConcurrentModification
	}
	p.Version++
	r.records[p.UserID] = cloneProgress(p)
	return nil
}

type fakeLedger struct {
	mu      sync.Mutex
	granted map[string]progression.Achievement // keyed by userID + "/" + milestoneID
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{granted: make(map[string]progression.Achievement)}
}

func (l *fakeLedger) Insert(ctx context.Context, a progression.Achievement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := a.UserID + "/" + a.MilestoneID
	if _, ok := l.granted[key]; ok {
		return shared.ErrMilestoneAlreadyGranted
	}
	l.granted[key] = a
	return nil
}

func (l *fakeLedger) ListByUser(ctx context.Context, userID string) ([]progression.Achievement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []progression.Achievement
	for _, a := range l.granted {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeWallet struct {
	mu      sync.Mutex
	credits map[string]int
	err     error
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{credits: make(map[string]int)}
}

func (w *fakeWallet) AddHints(ctx context.Context, userID string, hints int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.credits[userID] += hints
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *fakePublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakePublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]*ranked.Session
	attempts  map[string][]ranked.Attempt
	beforeEnd func() // runs before End takes the lock
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		sessions: make(map[string]*ranked.Session),
		attempts: make(map[string][]ranked.Attempt),
	}
}

func cloneSession(s *ranked.Session) *ranked.Session {
	c := *s
	return &c
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *ranked.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*ranked.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

// RecordAttempt mirrors the store contract: aggregates are incremented from
// the attempt against the stored row, never overwritten with absolutes.
func (r *fakeSessionRepo) RecordAttempt(ctx context.Context, s *ranked.Session, a ranked.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[a.SessionID]
	if !ok {
		return shared.ErrSessionNotFound
	}
	if stored.Status != ranked.StatusActive {
		return shared.ErrSessionInactive
	}
	stored.Apply(a, a.CreatedAt)
	r.attempts[a.SessionID] = append(r.attempts[a.SessionID], a)
	return nil
}

func (r *fakeSessionRepo) End(ctx context.Context, s *ranked.Session) error {
	if r.beforeEnd != nil {
		r.beforeEnd()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok {
		return shared.ErrSessionNotFound
	}
	if stored.Status != ranked.StatusActive {
		return shared.ErrSessionInactive
	}
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *fakeSessionRepo) ListCompletedEligible(ctx context.Context, limit int) ([]ranked.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var entries []ranked.Entry
	for _, s := range r.sessions {
		if s.Status == ranked.StatusCompleted && s.Eligible() {
			entries = append(entries, ranked.NewEntry(s))
		}
	}
	ranked.SortEntries(entries)
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *fakeSessionRepo) CloseStale(ctx context.Context, now time.Time, maxIdle time.Duration) ([]*ranked.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var closed []*ranked.Session
	for _, s := range r.sessions {
		if s.Status == ranked.StatusActive && now.Sub(s.LastActivityAt) > maxIdle {
			s.End(now, true)
			closed = append(closed, cloneSession(s))
		}
	}
	return closed, nil
}

type fakeQuestionRepo struct {
	questions map[string]*quiz.Question
}

func newFakeQuestionRepo(questions ...*quiz.Question) *fakeQuestionRepo {
	r := &fakeQuestionRepo{questions: make(map[string]*quiz.Question)}
	for _, q := range questions {
		r.questions[q.ID] = q
	}
	return r
}

func (r *fakeQuestionRepo) GetByID(ctx context.Context, id string) (*quiz.Question, error) {
	q, ok := r.questions[id]
	if !ok {
		return nil, shared.ErrQuestionNotFound
	}
	return q, nil
}
