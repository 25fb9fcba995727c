package pns

import (
	"fmt"

	"github.com/alan-christopher/pns/go/pns/bitmap"
)

// A History is the ordered record of every round in a run. Rounds are only
// ever appended; the only permitted mutation of an existing round is the
// resolution of a deferred eavesdropper measurement.
type History struct {
	rounds []Round
}

// NewHistory rebuilds a History from previously recorded rounds, e.g. ones
// read back from a transcript or a store. The rounds must be internally
// consistent, indexed 0, 1, 2, ... in order, and must together be something a
// single Session could have recorded.
func NewHistory(rounds []Round) (*History, error) {
	h := &History{rounds: make([]Round, 0, len(rounds))}
	for i, r := range rounds {
		if r.Index != i {
			return nil, fmt.Errorf("round at position %d has index %d: %w", i, r.Index, ErrInvalidInput)
		}
		if err := r.validate(); err != nil {
			return nil, err
		}
		h.rounds = append(h.rounds, r)
	}
	if err := validateRun(h.rounds); err != nil {
		return nil, err
	}
	return h, nil
}

// validateRun checks the rounds of one run against each other. The attack is
// on or off for a whole run, so a round sent without an attack means every
// round was, unless ResolveAll has since resolved them all. Likewise only
// ResolveAll resolves a vacuum pulse, and it leaves nothing unresolved behind.
func validateRun(rounds []Round) error {
	var notApplicable, unresolved int
	resolvedVacuum := -1
	for _, r := range rounds {
		if r.EveState == EveNotApplicable {
			notApplicable++
		}
		if r.Unresolved() {
			unresolved++
		}
		if r.EveState == EveResolved && r.PhotonCount == 0 && resolvedVacuum < 0 {
			resolvedVacuum = r.Index
		}
	}
	if notApplicable > 0 && notApplicable < len(rounds) {
		return fmt.Errorf("%d of %d rounds sent without an attack: %w", notApplicable, len(rounds), ErrInvalidInput)
	}
	if resolvedVacuum >= 0 && unresolved > 0 {
		return fmt.Errorf("round %d: vacuum pulse resolved while %d rounds remain unresolved: %w", resolvedVacuum, unresolved, ErrInvalidInput)
	}
	return nil
}

// Len returns the number of rounds recorded so far.
func (h *History) Len() int {
	return len(h.rounds)
}

// At returns the i-th round. It panics if i is out of range.
func (h *History) At(i int) Round {
	return h.rounds[i]
}

// Rounds returns a copy of every round, in order.
func (h *History) Rounds() []Round {
	return append([]Round(nil), h.rounds...)
}

func (h *History) append(r Round) Round {
	r.Index = len(h.rounds)
	h.rounds = append(h.rounds, r)
	return r
}

// Stats tallies a History by pulse composition and eavesdropper state.
type Stats struct {
	Rounds       int
	Vacuum       int
	SinglePhoton int
	MultiPhoton  int

	// Pending counts rounds whose eavesdropper measurement is deferred.
	Pending int
	// EveKnown counts rounds whose eavesdropper bit and basis are resolved.
	EveKnown int
}

// Stats returns the tallies for h.
func (h *History) Stats() Stats {
	s := Stats{Rounds: len(h.rounds)}
	for _, r := range h.rounds {
		switch {
		case r.PhotonCount == 0:
			s.Vacuum++
		case r.PhotonCount == 1:
			s.SinglePhoton++
		default:
			s.MultiPhoton++
		}
		switch r.EveState {
		case EveDeferred:
			s.Pending++
		case EveResolved:
			s.EveKnown++
		}
	}
	return s
}

// Columns is a column-wise view of a History. The i-th bit of every column
// describes round i, so all columns share the same Size. Bases are encoded as
// 0 for Z and 1 for X.
type Columns struct {
	AliceBits  bitmap.Dense
	AliceBases bitmap.Dense
	BobBases   bitmap.Dense
	BobBits    bitmap.Dense
	// Detected is set for rounds where Bob registered a photon.
	Detected bitmap.Dense
	// EveResolved is set for rounds where EveBits and EveBases are
	// meaningful.
	EveResolved bitmap.Dense
	EveBits     bitmap.Dense
	EveBases    bitmap.Dense
}

// Columns returns h as a set of index-aligned bit columns, suitable for
// downstream analysis such as sifting.
func (h *History) Columns() Columns {
	var c Columns
	for _, r := range h.rounds {
		c.AliceBits.AppendBit(r.AliceBit == 1)
		c.AliceBases.AppendBit(r.AliceBasis == X)
		c.BobBases.AppendBit(r.BobBasis == X)
		c.BobBits.AppendBit(r.Detected && r.BobBit == 1)
		c.Detected.AppendBit(r.Detected)
		c.EveResolved.AppendBit(r.EveState == EveResolved)
		c.EveBits.AppendBit(r.EveState == EveResolved && r.EveBit == 1)
		c.EveBases.AppendBit(r.EveState == EveResolved && r.EveBasis == X)
	}
	return c
}

// EveCorrect returns the number of rounds for which the eavesdropper holds a
// resolved bit equal to Alice's.
func (c Columns) EveCorrect() int {
	agree := bitmap.XNor(c.EveBits, c.AliceBits)
	return bitmap.CountOnes(bitmap.And(agree, c.EveResolved))
}
