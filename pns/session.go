package pns

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/alan-christopher/pns/go/pns/photon"
)

// A Session is a single simulated exchange. It owns the run's History.
// Sessions are not safe for concurrent use.
type Session struct {
	mean    float64
	attack  bool
	rand    *rand.Rand
	sampler photon.Sampler
	policy  ResolvePolicy
	log     *slog.Logger

	history   History
	disclosed bool
}

// MeanPhotonNumber returns the configured mean photon number.
func (s *Session) MeanPhotonNumber() float64 {
	return s.mean
}

// AttackEnabled reports whether Eve attacks during this session.
func (s *Session) AttackEnabled() bool {
	return s.attack
}

// ResolvePolicy returns the policy Resolve applies.
func (s *Session) ResolvePolicy() ResolvePolicy {
	return s.policy
}

// History returns the session's history. The returned History is live: it
// reflects later calls to Transmit and Resolve.
func (s *Session) History() *History {
	return &s.history
}

// Transmit sends one pulse encoding aliceBit in aliceBasis, which Bob measures
// in bobBasis, and appends the resulting Round to the history.
func (s *Session) Transmit(aliceBit Bit, aliceBasis, bobBasis Basis) (Round, error) {
	if s.disclosed {
		return Round{}, ErrDisclosed
	}
	if !aliceBit.Valid() {
		return Round{}, fmt.Errorf("alice bit %d: %w", aliceBit, ErrInvalidInput)
	}
	if !aliceBasis.Valid() {
		return Round{}, fmt.Errorf("alice basis %d: %w", aliceBasis, ErrInvalidInput)
	}
	if !bobBasis.Valid() {
		return Round{}, fmt.Errorf("bob basis %d: %w", bobBasis, ErrInvalidInput)
	}

	r := Round{
		PhotonCount: s.sampler.Sample(),
		AliceBit:    aliceBit,
		AliceBasis:  aliceBasis,
		BobBasis:    bobBasis,
	}
	switch {
	case r.PhotonCount <= 0:
		// Nothing reaches Bob, and there is nothing for Eve to take.
		r.PhotonCount = 0
		if s.attack {
			r.EveState = EveVacuum
		}
	case r.PhotonCount > 1 && s.attack:
		// Eve splits off one photon and waits for the basis announcement.
		// The remainder reaches Bob undisturbed.
		r.EveState = EveDeferred
		r.Detected = true
		r.BobBit = s.measure(aliceBit, aliceBasis, bobBasis)
	case s.attack:
		// A lone photon can't be split, so Eve falls back to
		// intercept-resend.
		r.EveState = EveResolved
		r.EveBasis = s.randomBasis()
		r.EveBit = s.measure(aliceBit, aliceBasis, r.EveBasis)
		r.Detected = true
		r.BobBit = s.measure(r.EveBit, r.EveBasis, bobBasis)
	default:
		r.Detected = true
		r.BobBit = s.measure(aliceBit, aliceBasis, bobBasis)
	}
	r = s.history.append(r)

	s.log.Debug("transmitted pulse",
		slog.Int("round", r.Index),
		slog.Int("photons", r.PhotonCount),
		slog.String("eve", r.EveState.String()))
	return r, nil
}

// TransmitN calls Transmit n times, taking the inputs for round i from next.
// It stops at the first error.
func (s *Session) TransmitN(n int, next func(i int) (aliceBit Bit, aliceBasis, bobBasis Basis)) error {
	for i := 0; i < n; i++ {
		bit, aBasis, bBasis := next(i)
		if _, err := s.Transmit(bit, aBasis, bBasis); err != nil {
			return fmt.Errorf("round %d: %w", i, err)
		}
	}
	return nil
}

// TransmitRandom transmits n pulses whose bits and bases are drawn uniformly
// from the session's source of randomness.
func (s *Session) TransmitRandom(n int) error {
	return s.TransmitN(n, func(int) (Bit, Basis, Basis) {
		return s.randomBit(), s.randomBasis(), s.randomBasis()
	})
}

// Resolve lets Eve measure her held photons now that bases are public, in
// accordance with the session's ResolvePolicy. It returns the number of rounds
// resolved. After Resolve, Transmit returns ErrDisclosed.
func (s *Session) Resolve() int {
	s.disclosed = true
	n := Resolve(&s.history, s.policy)
	s.log.Info("resolved deferred measurements",
		slog.Int("resolved", n),
		slog.Int("rounds", s.history.Len()),
		slog.String("policy", s.policy.String()))
	return n
}

// measure returns the result of measuring a photon prepared as bit in
// prepBasis, using measBasis. Matching bases reproduce bit exactly; otherwise
// the result is a fair coin.
func (s *Session) measure(bit Bit, prepBasis, measBasis Basis) Bit {
	if prepBasis == measBasis {
		return bit
	}
	return s.randomBit()
}

func (s *Session) randomBit() Bit {
	return Bit(s.rand.IntN(2))
}

func (s *Session) randomBasis() Basis {
	if s.rand.IntN(2) == 0 {
		return Z
	}
	return X
}
