package market

import (
	"math/rand"
	"time"
)

// for deterministic testing
type Clock interface {
	Now() time.Time
}

// for deterministic values
type Rand interface {
	Float64() float64
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type RealRand struct{ *rand.Rand }

func (r RealRand) Float64() float64 { return r.Rand.Float64() }

// NewRand returns a wall-clock seeded random source. Not cryptographic and
// not reseedable; price realism is not a goal.
func NewRand() Rand {
	return RealRand{rand.New(rand.NewSource(time.Now().UnixNano()))}
}
