package mailer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dkurin/huddle/internal/domain"
)

type fakeStore struct {
	mu   sync.Mutex
	jobs map[domain.MailID]*domain.MailJob
}

func newFakeStore(jobs ...*domain.MailJob) *fakeStore {
	s := &fakeStore{jobs: make(map[domain.MailID]*domain.MailJob)}
	for _, j := range jobs {
		s.jobs[j.ID] = j
	}
	return s
}

func (s *fakeStore) ListUnsent(_ context.Context) ([]domain.MailJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.MailJob
	for _, j := range s.jobs {
		if !j.Sent {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *fakeStore) MarkSent(_ context.Context, id domain.MailID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	j.Sent = true
	j.DateSent = &at
	return nil
}

func (s *fakeStore) get(id domain.MailID) domain.MailJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.jobs[id]
}

type fakeTransport struct {
	mu    sync.Mutex
	sent  []Message
	fail  map[string]error
	block chan struct{}
}

func (t *fakeTransport) Send(_ context.Context, m Message) error {
	if t.block != nil {
		<-t.block
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.fail[m.To]; err != nil {
		return err
	}
	t.sent = append(t.sent, m)
	return nil
}

func (t *fakeTransport) sentCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sent)
}

func TestDispatcher_DeliversAndMarksSent(t *testing.T) {
	req := require.New(t)
	store := newFakeStore(&domain.MailJob{ID: "j1", From: "a@x.io", To: "b@x.io", Subject: "hi"})
	transport := &fakeTransport{}
	d := NewDispatcher(store, transport, time.Second)

	req.True(d.RunOnce(context.Background()))
	req.Equal(1, transport.sentCount())

	job := store.get("j1")
	req.True(job.Sent)
	req.NotNil(job.DateSent)

	// A later pass never resends a delivered job.
	req.True(d.RunOnce(context.Background()))
	req.Equal(1, transport.sentCount())
}

func TestDispatcher_FailedJobStaysForRetry(t *testing.T) {
	req := require.New(t)
	store := newFakeStore(
		&domain.MailJob{ID: "j1", To: "down@x.io"},
		&domain.MailJob{ID: "j2", To: "up@x.io"},
	)
	transport := &fakeTransport{fail: map[string]error{"down@x.io": errors.New("relay refused")}}
	d := NewDispatcher(store, transport, time.Second)

	req.True(d.RunOnce(context.Background()))

	// The healthy job went out; the failed one is untouched.
	req.False(store.get("j1").Sent)
	req.True(store.get("j2").Sent)

	// Next pass retries the failed one; no cap, no backoff.
	transport.mu.Lock()
	transport.fail = nil
	transport.mu.Unlock()
	req.True(d.RunOnce(context.Background()))
	req.True(store.get("j1").Sent)
}

// The run guard: a tick firing while a pass is in flight performs zero
// transport calls.
func TestDispatcher_OverlappingTickIsDropped(t *testing.T) {
	req := require.New(t)
	store := newFakeStore(&domain.MailJob{ID: "j1", To: "b@x.io"})
	transport := &fakeTransport{block: make(chan struct{})}
	d := NewDispatcher(store, transport, time.Second)

	firstDone := make(chan bool)
	go func() {
		firstDone <- d.RunOnce(context.Background())
	}()

	// Wait for the first pass to hold the guard inside the blocked send.
	req.Eventually(func() bool {
		if d.running.TryLock() {
			d.running.Unlock()
			return false
		}
		return true
	}, time.Second, 5*time.Millisecond)

	req.False(d.RunOnce(context.Background()), "overlapping tick must be dropped")
	req.Equal(0, transport.sentCount())

	close(transport.block)
	req.True(<-firstDone)
	req.Equal(1, transport.sentCount())

	// Guard released: the next tick runs again.
	req.True(d.RunOnce(context.Background()))
}
