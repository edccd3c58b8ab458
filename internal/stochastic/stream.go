// Package stochastic generates the price, growth and cost paths of a trial.
//
// Every simulator draws from an explicit Sampler. A Stream is a PCG generator
// whose seed is derived from the run seed and the trial index, so the draws of
// trial i never depend on which worker ran it or on how many trials ran before.
package stochastic

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler is the source of random draws consumed by the path simulators.
type Sampler interface {
	// Normal draws from N(mu, sigma²).
	Normal(mu, sigma float64) float64
	// Poisson draws an event count with the given mean.
	Poisson(lambda float64) int
}

// Stream is a deterministic per-trial random sub-stream. It is not safe for
// concurrent use; each trial owns its own Stream.
type Stream struct {
	src rand.Source
}

// NewStream returns the sub-stream of trial index under the run seed.
func NewStream(seed uint64, index int) *Stream {
	return &Stream{src: rand.NewSource(DeriveSeed(seed, index))}
}

// DeriveSeed maps (run seed, trial index) to the seed of the trial's
// sub-stream: the first eight bytes of SHA256("seed|index").
func DeriveSeed(seed uint64, index int) uint64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%d", seed, index)))
	return binary.BigEndian.Uint64(sum[:8])
}

// Normal draws from N(mu, sigma²).
func (s *Stream) Normal(mu, sigma float64) float64 {
	return distuv.Normal{Mu: mu, Sigma: sigma, Src: s.src}.Rand()
}

// Poisson draws an event count with mean lambda. A non-positive mean yields
// zero without consuming a draw.
func (s *Stream) Poisson(lambda float64) int {
	if !(lambda > 0) {
		return 0
	}
	return int(distuv.Poisson{Lambda: lambda, Src: s.src}.Rand())
}

// Increment draws a Brownian increment with variance dt.
func Increment(s Sampler, dt float64) float64 {
	return s.Normal(0, math.Sqrt(dt))
}
