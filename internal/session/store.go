// Package session keeps blackjack rounds between requests.
//
// A Store persists Records and serialises access to each one. The Manager
// layers the game engine on top: every change to a session runs while that
// session's lock is held, so two requests for the same id never interleave.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/lox/blackjack/internal/game"
)

var (
	// ErrNotFound is returned for an unknown session id
	ErrNotFound = errors.New("session: not found")
	// ErrExists is returned when creating a session whose id is taken
	ErrExists = errors.New("session: already exists")
	// ErrLockTimeout is returned when a session stays locked past the caller's deadline
	ErrLockTimeout = errors.New("session: timed out waiting for lock")
)

// Record is a stored session: the current round plus bookkeeping.
type Record struct {
	ID        string      `json:"id"`
	Round     *game.Round `json:"round"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	Version   int64       `json:"version"`
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	c := *r
	if r.Round != nil {
		c.Round = r.Round.Clone()
	}
	return &c
}

// Store persists session records.
//
// Lock blocks until the caller holds exclusive access to id or ctx is done.
// The returned function releases the lock and is safe to call more than once.
type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	Put(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*Record, error)
	Lock(ctx context.Context, id string) (unlock func(), err error)
	Close() error
}
