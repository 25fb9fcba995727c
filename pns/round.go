package pns

import "fmt"

// A Basis identifies the polarization basis used to prepare or measure a
// photon. The zero Basis is not a valid basis; it marks a measurement which
// has not taken place.
type Basis uint8

const (
	// Z is the rectilinear basis.
	Z Basis = iota + 1
	// X is the diagonal basis.
	X
)

// ParseBasis converts "Z" or "X" to the corresponding Basis.
func ParseBasis(s string) (Basis, error) {
	switch s {
	case "Z", "z":
		return Z, nil
	case "X", "x":
		return X, nil
	}
	return 0, fmt.Errorf("basis %q: %w", s, ErrInvalidInput)
}

// Valid reports whether b is one of Z or X.
func (b Basis) Valid() bool {
	return b == Z || b == X
}

func (b Basis) String() string {
	switch b {
	case Z:
		return "Z"
	case X:
		return "X"
	}
	return "-"
}

// A Bit is a logical bit value, 0 or 1.
type Bit uint8

// Valid reports whether b is 0 or 1.
func (b Bit) Valid() bool {
	return b <= 1
}

// EveState describes what the eavesdropper knows about a single round.
type EveState uint8

const (
	// EveNotApplicable marks rounds sent while the attack was disabled. These
	// rounds are never resolved.
	EveNotApplicable EveState = iota
	// EveVacuum marks rounds where the attack was enabled but the pulse was
	// empty, so there was nothing to intercept.
	EveVacuum
	// EveDeferred marks rounds where the eavesdropper split off a photon from
	// a multi-photon pulse and is holding it until bases are announced.
	EveDeferred
	// EveResolved marks rounds where the eavesdropper's bit and basis are
	// known.
	EveResolved
)

func (s EveState) String() string {
	switch s {
	case EveNotApplicable:
		return "not-applicable"
	case EveVacuum:
		return "vacuum"
	case EveDeferred:
		return "deferred"
	case EveResolved:
		return "resolved"
	}
	return fmt.Sprintf("EveState(%d)", uint8(s))
}

// ParseEveState is the inverse of EveState.String.
func ParseEveState(s string) (EveState, error) {
	for st := EveNotApplicable; st <= EveResolved; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("eavesdropper state %q: %w", s, ErrInvalidInput)
}

// A Round records everything each party observed during a single pulse.
//
// BobBit is meaningful only when Detected is true. EveBit and EveBasis are
// meaningful only when EveState is EveResolved, and are otherwise zero.
type Round struct {
	Index       int
	PhotonCount int

	AliceBit   Bit
	AliceBasis Basis

	BobBasis Basis
	Detected bool
	BobBit   Bit

	EveState EveState
	EveBit   Bit
	EveBasis Basis
}

// Unresolved reports whether the eavesdropper's bit and basis are still
// unknown for r, for whatever reason.
func (r Round) Unresolved() bool {
	return r.EveState != EveResolved
}

// Deferred reports whether the eavesdropper is holding a photon from r, waiting
// for basis information.
func (r Round) Deferred() bool {
	return r.EveState == EveDeferred
}

// validate checks the internal consistency of r, as it would be produced by a
// Session.
func (r Round) validate() error {
	switch {
	case r.Index < 0:
		return fmt.Errorf("round index %d: %w", r.Index, ErrInvalidInput)
	case r.PhotonCount < 0:
		return fmt.Errorf("round %d: negative photon count %d: %w", r.Index, r.PhotonCount, ErrInvalidInput)
	case !r.AliceBit.Valid() || !r.BobBit.Valid() || !r.EveBit.Valid():
		return fmt.Errorf("round %d: bit out of range: %w", r.Index, ErrInvalidInput)
	case !r.AliceBasis.Valid() || !r.BobBasis.Valid():
		return fmt.Errorf("round %d: basis out of range: %w", r.Index, ErrInvalidInput)
	case r.Detected != (r.PhotonCount > 0):
		return fmt.Errorf("round %d: detection inconsistent with %d photons: %w", r.Index, r.PhotonCount, ErrInvalidInput)
	case !r.Detected && r.BobBit != 0:
		return fmt.Errorf("round %d: bit recorded for undetected pulse: %w", r.Index, ErrInvalidInput)
	case r.EveState > EveResolved:
		return fmt.Errorf("round %d: unknown eavesdropper state %d: %w", r.Index, r.EveState, ErrInvalidInput)
	case r.EveState == EveVacuum && r.PhotonCount != 0:
		return fmt.Errorf("round %d: vacuum state for a pulse of %d photons: %w", r.Index, r.PhotonCount, ErrInvalidInput)
	case r.EveState == EveDeferred && r.PhotonCount < 2:
		return fmt.Errorf("round %d: deferred measurement without a photon to split off: %w", r.Index, ErrInvalidInput)
	case r.EveState == EveResolved && !r.EveBasis.Valid():
		return fmt.Errorf("round %d: resolved without a basis: %w", r.Index, ErrInvalidInput)
	case r.EveState != EveResolved && (r.EveBasis != 0 || r.EveBit != 0):
		return fmt.Errorf("round %d: unresolved round carries a measurement: %w", r.Index, ErrInvalidInput)
	}
	return nil
}
