package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkurin/huddle/internal/domain"
)

var ErrMeetingNotFound = errors.New("meeting not found")

const meetingPrefix = "meeting:"

// Meetings persists meeting metadata, including the live peer list the
// coordinator keeps consistent on disconnect.
type Meetings struct {
	db *badger.DB
}

func NewMeetings(db *badger.DB) *Meetings {
	return &Meetings{db: db}
}

func (s *Meetings) Save(m *domain.Meeting) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal meeting: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(meetingPrefix+string(m.ID)), data)
	})
}

func (s *Meetings) FindByID(ctx context.Context, id domain.MeetingID) (*domain.Meeting, error) {
	var m domain.Meeting
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(meetingPrefix + string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &m)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMeetingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Meetings) List(ctx context.Context) ([]domain.Meeting, error) {
	var out []domain.Meeting
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(meetingPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var m domain.Meeting
				if err := json.Unmarshal(v, &m); err != nil {
					return err
				}
				out = append(out, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

func (s *Meetings) Delete(ctx context.Context, id domain.MeetingID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(meetingPrefix + string(id)))
	})
}

func (s *Meetings) AddPeer(ctx context.Context, id domain.MeetingID, connID domain.ConnID) error {
	m, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if lo.Contains(m.Peers, connID) {
		return nil
	}
	m.Peers = append(m.Peers, connID)
	return s.Save(m)
}

// RemovePeerEverywhere pulls the connection out of every meeting's peer
// list, the disconnect-path equivalent of a multi-document $pull.
func (s *Meetings) RemovePeerEverywhere(ctx context.Context, connID domain.ConnID) error {
	meetings, err := s.List(ctx)
	if err != nil {
		return err
	}
	for i := range meetings {
		m := &meetings[i]
		if !lo.Contains(m.Peers, connID) {
			continue
		}
		m.Peers = lo.Filter(m.Peers, func(id domain.ConnID, _ int) bool {
			return id != connID
		})
		if err := s.Save(m); err != nil {
			return err
		}
		log.Debug().Str("module", "storage.meetings").Str("meeting", string(m.ID)).Str("conn", string(connID)).Msg("peer removed")
	}
	return nil
}

// ClearAllPeers resets every peer list. Run at startup: no connection
// survives a process restart, so no peer entry should either.
func (s *Meetings) ClearAllPeers(ctx context.Context) error {
	meetings, err := s.List(ctx)
	if err != nil {
		return err
	}
	for i := range meetings {
		m := &meetings[i]
		if len(m.Peers) == 0 {
			continue
		}
		m.Peers = nil
		if err := s.Save(m); err != nil {
			return err
		}
	}
	return nil
}
