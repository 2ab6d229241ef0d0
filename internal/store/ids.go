package store

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator hands out build ids.
type IDGenerator interface {
	NewID() (string, error)
}

// ErrIDsExhausted is returned by FixedGenerator once every id has been used.
var ErrIDsExhausted = errors.New("fixed generator: all ids exhausted")

// UUIDv7Generator generates time-sortable UUIDv7 build ids.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ids sort by
// creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID creates a new UUIDv7 and returns it as a hyphenated string.
func (UUIDv7Generator) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// FixedGenerator returns predetermined build ids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("build-1", "build-2")
//	gen.NewID() // "build-1", nil
//	gen.NewID() // "build-2", nil
//	gen.NewID() // "", ErrIDsExhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// NewID returns the next predetermined id.
func (g *FixedGenerator) NewID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		return "", ErrIDsExhausted
	}
	id := g.ids[g.idx]
	g.idx++
	return id, nil
}
