package config

import (
	"strings"

	"github.com/opensonata/dxcore/internal/dxerr"
)

// Operations is the fixed-size flag set of spec.md §6's "operations
// bitset", kept as a typed bitset rather than the virtual-dispatch style
// the original used elsewhere (spec.md §9 design note).
type Operations uint32

const (
	OpBaselining Operations = 1 << iota
	OpPowerCWD
	OpCoherentCWD
	OpPulseDetection
	OpCandidateSelection
	OpApplyRecentRFIMask
	OpApplyTestSignalMask
	OpRejectZeroDriftSignals
	OpFollowUpCandidates
	OpProcessSecondaryCandidates

	opKnownMask = OpBaselining | OpPowerCWD | OpCoherentCWD | OpPulseDetection |
		OpCandidateSelection | OpApplyRecentRFIMask | OpApplyTestSignalMask |
		OpRejectZeroDriftSignals | OpFollowUpCandidates | OpProcessSecondaryCandidates
)

var opNames = map[Operations]string{
	OpBaselining:                 "BASELINING",
	OpPowerCWD:                   "POWER_CWD",
	OpCoherentCWD:                "COHERENT_CWD",
	OpPulseDetection:             "PULSE_DETECTION",
	OpCandidateSelection:         "CANDIDATE_SELECTION",
	OpApplyRecentRFIMask:         "APPLY_RECENT_RFI_MASK",
	OpApplyTestSignalMask:        "APPLY_TEST_SIGNAL_MASK",
	OpRejectZeroDriftSignals:     "REJECT_ZERO_DRIFT_SIGNALS",
	OpFollowUpCandidates:         "FOLLOW_UP_CANDIDATES",
	OpProcessSecondaryCandidates: "PROCESS_SECONDARY_CANDIDATES",
}

// Has reports whether every bit in want is set.
func (o Operations) Has(want Operations) bool { return o&want == want }

// String renders the set bits as a "|"-joined name list, for logging.
func (o Operations) String() string {
	var names []string
	for bit, name := range opNames {
		if o.Has(bit) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "NONE"
	}
	return strings.Join(names, "|")
}

// SanitizeWireBits masks an operations value received over the control
// channel down to the bits the core understands, per spec.md §6: "operations
// the core does not understand are ignored." Unlike unknown YAML config
// keys (rejected at load time), unknown wire bits are silently dropped.
func SanitizeWireBits(raw uint32) Operations {
	return Operations(raw) & opKnownMask
}

// ParseOperationNames converts a YAML operations list into a bitset,
// rejecting any name it does not recognize (unlike the wire path, the
// local YAML config surface is meant to catch operator typos).
func ParseOperationNames(names []string) (Operations, error) {
	byName := make(map[string]Operations, len(opNames))
	for bit, name := range opNames {
		byName[name] = bit
	}
	var out Operations
	for _, n := range names {
		bit, ok := byName[strings.ToUpper(strings.TrimSpace(n))]
		if !ok {
			return 0, dxerr.New(dxerr.KindConfiguration, "unknown operation %q", n)
		}
		out |= bit
	}
	return out, nil
}
