package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/dkurin/huddle/internal/domain"
)

var ErrMailNotFound = errors.New("mail job not found")

const mailPrefix = "mail:"

// MailJobs is the queue of notification emails awaiting delivery. Jobs
// are never deleted; delivered ones just carry sent=true.
type MailJobs struct {
	db *badger.DB
}

func NewMailJobs(db *badger.DB) *MailJobs {
	return &MailJobs{db: db}
}

func (s *MailJobs) Enqueue(job *domain.MailJob) error {
	if job.ID == "" {
		job.ID = domain.MailID(uuid.NewString())
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	return s.save(job)
}

func (s *MailJobs) save(job *domain.MailJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(mailPrefix+string(job.ID)), data)
	})
}

func (s *MailJobs) Get(ctx context.Context, id domain.MailID) (*domain.MailJob, error) {
	var job domain.MailJob
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(mailPrefix + string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &job)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMailNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ListUnsent returns all pending jobs in creation order.
func (s *MailJobs) ListUnsent(ctx context.Context) ([]domain.MailJob, error) {
	var out []domain.MailJob
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(mailPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var job domain.MailJob
				if err := json.Unmarshal(v, &job); err != nil {
					return err
				}
				if !job.Sent {
					out = append(out, job)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MarkSent reloads the job by id before flipping the flag, so a concurrent
// external edit between the dispatcher's scan and this call is not lost.
func (s *MailJobs) MarkSent(ctx context.Context, id domain.MailID, at time.Time) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	job.Sent = true
	job.DateSent = &at
	return s.save(job)
}
