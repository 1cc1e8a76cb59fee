// Package mailer drains the queue of not-yet-sent notification emails on
// a fixed interval. A pass that is still running when the next tick fires
// makes that tick a no-op: ticks are dropped, never queued.
package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkurin/huddle/internal/domain"
)

type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Transport is the external mail delivery collaborator.
type Transport interface {
	Send(ctx context.Context, m Message) error
}

// JobStore is the slice of the mail repository the dispatcher needs.
type JobStore interface {
	ListUnsent(ctx context.Context) ([]domain.MailJob, error)
	MarkSent(ctx context.Context, id domain.MailID, at time.Time) error
}

type Dispatcher struct {
	jobs      JobStore
	transport Transport
	interval  time.Duration

	// running is the scheduler run guard: TryLock at pass start, Unlock at
	// pass end whatever happened to individual jobs.
	running sync.Mutex
}

func NewDispatcher(jobs JobStore, transport Transport, interval time.Duration) *Dispatcher {
	return &Dispatcher{jobs: jobs, transport: transport, interval: interval}
}

// Run ticks until the context is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info().Str("module", "mailer").Dur("interval", d.interval).Msg("mail dispatcher started")
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "mailer").Msg("mail dispatcher stopped")
			return
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce performs one dispatch pass. Returns false when a pass was
// already running and this trigger was dropped without touching the
// transport. A failed send leaves the job unsent; it is retried on a
// later pass with no attempt cap.
func (d *Dispatcher) RunOnce(ctx context.Context) bool {
	if !d.running.TryLock() {
		log.Debug().Str("module", "mailer").Msg("pass already running, tick dropped")
		return false
	}
	defer d.running.Unlock()

	jobs, err := d.jobs.ListUnsent(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "mailer").Msg("list unsent")
		return true
	}

	for _, job := range jobs {
		msg := Message{From: job.From, To: job.To, Subject: job.Subject, HTML: job.HTML}
		if err := d.transport.Send(ctx, msg); err != nil {
			log.Error().Err(err).Str("module", "mailer").Str("mail", string(job.ID)).Msg("send failed, left for retry")
			continue
		}
		if err := d.jobs.MarkSent(ctx, job.ID, time.Now()); err != nil {
			log.Error().Err(err).Str("module", "mailer").Str("mail", string(job.ID)).Msg("mark sent")
			continue
		}
		log.Info().Str("module", "mailer").Str("mail", string(job.ID)).Str("to", job.To).Msg("mail delivered")
	}
	return true
}
