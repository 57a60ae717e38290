// Package dialogstore keeps open dialogs in Redis between requests.
package dialogstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"event-template-platform/internal/eventtemplate"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long an untouched dialog is kept.
const DefaultTTL = 30 * time.Minute

var (
	ErrDialogNotFound = errors.New("dialog not found")
	ErrConflict       = errors.New("dialog was changed by another request")
)

// Record is a persisted dialog. Exactly one of Create and Save is set,
// matching Kind.
type Record struct {
	ID        string                        `json:"id"`
	Kind      eventtemplate.Kind            `json:"kind"`
	UserID    int                           `json:"user_id"`
	Version   int                           `json:"version"`
	Create    *eventtemplate.CreateSnapshot `json:"create,omitempty"`
	Save      *eventtemplate.SaveSnapshot   `json:"save,omitempty"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// Store saves dialog records as JSON strings that expire after the TTL.
// Every write refreshes the expiry.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// New returns a store using client. A zero ttl means DefaultTTL.
func New(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, keyPrefix: keyPrefix, ttl: ttl}
}

func (s *Store) key(id string) string {
	return s.keyPrefix + "dialog:" + id
}

// Create assigns rec a fresh id and stores it.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.Version = 1
	rec.CreatedAt = now
	rec.UpdatedAt = now

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode dialog: %w", err)
	}
	if err := s.client.Set(ctx, s.key(rec.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store dialog: %w", err)
	}
	return nil
}

// Load returns the record with id, or ErrDialogNotFound.
func (s *Store) Load(ctx context.Context, id string) (*Record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrDialogNotFound
		}
		return nil, fmt.Errorf("failed to load dialog: %w", err)
	}
	return decode(data)
}

// Update overwrites a record that still exists and has not been changed
// since it was loaded. A deleted record yields ErrDialogNotFound, so results
// that arrive after a dialog was closed are dropped.
func (s *Store) Update(ctx context.Context, rec *Record) error {
	key := s.key(rec.ID)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrDialogNotFound
			}
			return err
		}
		current, err := decode(data)
		if err != nil {
			return err
		}
		if current.Version != rec.Version {
			return ErrConflict
		}

		next := *rec
		next.Version++
		next.UpdatedAt = time.Now().UTC()
		encoded, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("failed to encode dialog: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		*rec = next
		return nil
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrConflict
	case errors.Is(err, ErrDialogNotFound), errors.Is(err, ErrConflict):
		return err
	}
	return fmt.Errorf("failed to update dialog: %w", err)
}

// Delete removes a record. Deleting a missing record is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete dialog: %w", err)
	}
	return nil
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decode(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode dialog: %w", err)
	}
	return &rec, nil
}
