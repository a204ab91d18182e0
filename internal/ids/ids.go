// Package ids generates unique, time-ordered identifiers.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator produces identifiers.
type Generator interface {
	NewID() string
}

// ULID generates ULIDs with monotonic entropy, so two ids minted in the same
// millisecond still sort in creation order and never collide.
type ULID struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewULID returns a generator seeded from crypto/rand.
func NewULID() *ULID {
	return &ULID{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// NewID returns the next identifier. Safe for concurrent use.
func (g *ULID) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(g.now()), g.entropy).String()
}
