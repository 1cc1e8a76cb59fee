package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkurin/huddle/internal/auth"
	"github.com/dkurin/huddle/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

const (
	userPrefix      = "user:"
	userEmailPrefix = "user_email:"
)

// Users is the badger-backed user directory.
type Users struct {
	db *badger.DB
}

func NewUsers(db *badger.DB) *Users {
	return &Users{db: db}
}

func (s *Users) Save(u *domain.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(userPrefix+string(u.ID)), data); err != nil {
			return err
		}
		return txn.Set([]byte(userEmailPrefix+u.Email), []byte(u.ID))
	})
}

func (s *Users) FindByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	var u domain.User
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userPrefix + string(id)))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &u)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Users) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var id domain.UserID
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userEmailPrefix + email))
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			id = domain.UserID(v)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.FindByID(ctx, id)
}

// TouchLastOnline stamps the user's last-seen time. Reads the stored
// record fresh rather than trusting any copy the caller holds.
func (s *Users) TouchLastOnline(ctx context.Context, id domain.UserID, at time.Time) error {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	u.LastOnline = at
	return s.Save(u)
}

// RootAccount is the bootstrap configuration for the first user.
type RootAccount struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// EnsureRoot creates the root account once. A user already stored under
// the configured email makes this a no-op.
func (s *Users) EnsureRoot(ctx context.Context, acc RootAccount) error {
	if acc.Email == "" {
		return nil
	}
	if _, err := s.FindByEmail(ctx, acc.Email); err == nil {
		log.Info().Str("module", "storage.users").Str("email", acc.Email).Msg("root account already exists")
		return nil
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash, err := auth.HashPassword(acc.Password)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}
	u := &domain.User{
		ID:           domain.UserID(uuid.NewString()),
		Username:     acc.Username,
		Email:        acc.Email,
		FirstName:    acc.FirstName,
		LastName:     acc.LastName,
		Level:        domain.LevelRoot,
		PasswordHash: hash,
	}
	if err := s.Save(u); err != nil {
		return err
	}
	log.Info().Str("module", "storage.users").Str("email", acc.Email).Msg("root account created")
	return nil
}
