package store

import (
	"context"
	"errors"

	"github.com/nerrad567/hearth/internal/household"
)

var (
	// ErrUserNotFound is returned by Load for a user with no saved household.
	ErrUserNotFound = errors.New("store: user not found")

	// ErrPersistence wraps I/O failures. Callers treat it as transient.
	ErrPersistence = errors.New("store: persistence failure")

	// ErrStaleVersion is returned by Save when a newer version of the
	// household has already been written.
	ErrStaleVersion = errors.New("store: stale version")
)

// Gateway loads and saves whole household aggregates.
//
// Implementations must be safe for concurrent use. Save receives a
// snapshot the caller no longer mutates.
type Gateway interface {
	ListUsers(ctx context.Context) ([]string, error)
	Load(ctx context.Context, userID string) (*household.Household, error)
	Save(ctx context.Context, h *household.Household) error
}
