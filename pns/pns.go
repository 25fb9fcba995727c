// Package pns simulates photon-number-splitting attacks against a simplified
// BB84 exchange.
//
// A Session transmits one pulse per call to Transmit, recording what the
// sender (Alice), the receiver (Bob) and the eavesdropper (Eve) each observe.
// When a pulse carries more than one photon and the attack is enabled, Eve
// keeps one photon and postpones measuring it. Once bases have been announced,
// Resolve lets Eve measure every held photon in the now-known basis.
package pns

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/alan-christopher/pns/go/pns/photon"
)

// DefaultMeanPhotonNumber is the mean photon number reported by sessions which
// don't configure one.
const DefaultMeanPhotonNumber = 0.1

var (
	// ErrInvalidInput is returned when a bit or basis lies outside its
	// domain. The offending call leaves the History untouched.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDisclosed is returned by Transmit once bases have been disclosed
	// via Session.Resolve.
	ErrDisclosed = errors.New("bases already disclosed")
)

// A ResolvePolicy selects which unresolved rounds Resolve fills in.
type ResolvePolicy uint8

const (
	// ResolveDeferred resolves only rounds where Eve split off and held a
	// photon.
	ResolveDeferred ResolvePolicy = iota
	// ResolveAll resolves every round whose eavesdropper fields are unset,
	// including vacuum pulses and rounds sent with the attack disabled.
	ResolveAll
)

func (p ResolvePolicy) String() string {
	switch p {
	case ResolveDeferred:
		return "deferred"
	case ResolveAll:
		return "all"
	}
	return fmt.Sprintf("ResolvePolicy(%d)", uint8(p))
}

// ParseResolvePolicy converts "deferred" or "all" to a ResolvePolicy.
func ParseResolvePolicy(s string) (ResolvePolicy, error) {
	switch s {
	case "deferred", "":
		return ResolveDeferred, nil
	case "all":
		return ResolveAll, nil
	}
	return 0, fmt.Errorf("unknown resolve policy %q", s)
}

// An Opts packages together the arguments necessary to construct a new
// Session. Rand has no reasonable default, and leaving it nil will result in
// NewSession returning an error.
type Opts struct {
	// MeanPhotonNumber describes the average photon number of Alice's
	// pulses. It is informational: the default Sampler draws from
	// photon.DefaultWeights regardless of its value. Defaults to
	// DefaultMeanPhotonNumber.
	MeanPhotonNumber float64

	// AttackEnabled fixes, for the whole run, whether Eve attacks. When
	// false, Eve never touches the channel.
	AttackEnabled bool

	// Rand provides the source of randomness for every guess made by a
	// party measuring in the wrong basis, and for Eve's choice of basis
	// during intercept-resend. Must be non-nil.
	Rand *rand.Rand

	// Sampler draws the photon count of each pulse. Defaults to a
	// photon.Categorical over photon.DefaultWeights, sharing Rand.
	Sampler photon.Sampler

	// ResolvePolicy selects which rounds Session.Resolve fills in. Defaults to
	// ResolveDeferred.
	ResolvePolicy ResolvePolicy

	// Logger receives a debug record per round and an info record per
	// resolution. Defaults to discarding everything.
	Logger *slog.Logger
}

// NewSession returns a new Session, configured in accordance with opts, or an
// error if the options are nonsensical.
func NewSession(opts Opts) (*Session, error) {
	if opts.Rand == nil {
		return nil, errors.New("must provide Rand")
	}
	if opts.MeanPhotonNumber < 0 {
		return nil, fmt.Errorf("mean photon number must not be negative, got %v", opts.MeanPhotonNumber)
	}
	if opts.ResolvePolicy > ResolveAll {
		return nil, fmt.Errorf("unknown resolve policy %d", opts.ResolvePolicy)
	}
	mean := opts.MeanPhotonNumber
	if mean == 0 {
		mean = DefaultMeanPhotonNumber
	}
	sampler := opts.Sampler
	if sampler == nil {
		sampler = photon.NewDefault(opts.Rand)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{
		mean:    mean,
		attack:  opts.AttackEnabled,
		rand:    opts.Rand,
		sampler: sampler,
		policy:  opts.ResolvePolicy,
		log:     logger,
	}, nil
}
