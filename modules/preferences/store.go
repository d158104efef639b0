// Package preferences remembers per-session UI choices in Redis.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable is returned when the backing store cannot be reached.
var ErrUnavailable = errors.New("preference store unavailable")

// PageSizeStore remembers the page size chosen in a browser session.
type PageSizeStore interface {
	// GetPageSize returns the remembered size and true, or false when the
	// session has none.
	GetPageSize(ctx context.Context, sessionID string) (int, bool, error)

	// SetPageSize remembers size for the session.
	SetPageSize(ctx context.Context, sessionID string, size int) error
}

// kvStore is the part of the mono storage interface the store uses.
type kvStore interface {
	GetWithContext(ctx context.Context, key string) ([]byte, error)
	SetWithContext(ctx context.Context, key string, val []byte, exp time.Duration) error
	DeleteWithContext(ctx context.Context, key string) error
}

type pageSizeStore struct {
	kv      kvStore
	breaker *gobreaker.CircuitBreaker
	ttl     time.Duration
}

// NewPageSizeStore creates a PageSizeStore over kv. Entries expire ttl after
// their last read or write. A nil kv yields a store that always reports
// ErrUnavailable.
func NewPageSizeStore(kv kvStore, ttl time.Duration) PageSizeStore {
	return &pageSizeStore{
		kv:      kv,
		breaker: newBreaker("preferences-redis"),
		ttl:     ttl,
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[preferences] Circuit breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

func pageSizeKey(sessionID string) string {
	return "session:" + sessionID + ":page-size"
}

func (s *pageSizeStore) GetPageSize(ctx context.Context, sessionID string) (int, bool, error) {
	if s.kv == nil {
		return 0, false, ErrUnavailable
	}
	key := pageSizeKey(sessionID)

	val, err := s.breaker.Execute(func() (interface{}, error) {
		data, err := s.kv.GetWithContext(ctx, key)
		if err != nil {
			return nil, err
		}
		if len(data) > 0 {
			// Sliding expiry: every read pushes the deadline out again.
			if err := s.kv.SetWithContext(ctx, key, data, s.ttl); err != nil {
				return nil, err
			}
		}
		return data, nil
	})
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	data := val.([]byte)
	if len(data) == 0 {
		return 0, false, nil
	}
	size, err := strconv.Atoi(string(data))
	if err != nil || size < 0 {
		// A corrupt entry is treated as absent and removed.
		_ = s.kv.DeleteWithContext(ctx, key)
		return 0, false, nil
	}
	return size, true, nil
}

func (s *pageSizeStore) SetPageSize(ctx context.Context, sessionID string, size int) error {
	if s.kv == nil {
		return ErrUnavailable
	}
	if size < 0 {
		return fmt.Errorf("invalid page size %d", size)
	}
	key := pageSizeKey(sessionID)

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.kv.SetWithContext(ctx, key, []byte(strconv.Itoa(size)), s.ttl)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
