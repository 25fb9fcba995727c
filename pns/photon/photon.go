// Package photon provides utilities for modelling the photon content of weak
// coherent pulses.
package photon

// A Sampler draws the number of photons carried by successive pulses emitted
// by a sender's source.
type Sampler interface {
	// Sample returns the photon count of the next pulse. Counts are
	// non-negative, and successive calls are independent draws.
	Sample() int
}

// A Fixed replays a predetermined sequence of photon counts, wrapping around
// once the sequence is exhausted. It is intended for experiments which need to
// force a particular pulse composition.
type Fixed struct {
	Counts []int

	next int
}

// Sample implements the Sampler interface. An empty Fixed always yields
// vacuum pulses.
func (f *Fixed) Sample() int {
	if len(f.Counts) == 0 {
		return 0
	}
	n := f.Counts[f.next%len(f.Counts)]
	f.next++
	return n
}
