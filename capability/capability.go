// Package capability derives the feature set of a connected engine from the
// version it reports.
package capability

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/dmora/enginesup"
)

// Version thresholds for version-gated features.
var (
	// MemoryAndTimeLimitsSince is the first version accepting -M and -T.
	MemoryAndTimeLimitsSince = semver.MustParse("3.1.0")

	// RegionOfInterestSince is the first version accepting roi requests.
	RegionOfInterestSince = semver.MustParse("3.1.1")
)

// Set is the negotiated capability set of one connection. It is derived
// once per connection attempt and never re-evaluated mid-connection.
type Set struct {
	// Version is the parsed engine version.
	Version *semver.Version

	// MemoryAndTimeLimits reports whether the engine accepts the
	// -M (memory limit) and -T (time limit) flags.
	MemoryAndTimeLimits bool

	// RegionOfInterest reports whether the engine can restrict analysis
	// to a caller-specified region of interest.
	RegionOfInterest bool
}

// Negotiate parses raw and derives the capability set. A capability with
// threshold T is enabled iff T <= raw under semantic-version precedence.
// Malformed versions return an error wrapping enginesup.ErrMalformedVersion.
func Negotiate(raw string) (Set, error) {
	v, err := semver.StrictNewVersion(strings.TrimPrefix(strings.TrimSpace(raw), "v"))
	if err != nil {
		return Set{}, fmt.Errorf("%w: %q: %w", enginesup.ErrMalformedVersion, raw, err)
	}
	return Set{
		Version:             v,
		MemoryAndTimeLimits: atLeast(v, MemoryAndTimeLimitsSince),
		RegionOfInterest:    atLeast(v, RegionOfInterestSince),
	}, nil
}

func atLeast(v, threshold *semver.Version) bool {
	return !v.LessThan(threshold)
}

// String renders the set for logs.
func (s Set) String() string {
	version := "unknown"
	if s.Version != nil {
		version = s.Version.String()
	}
	return fmt.Sprintf("version=%s limits=%t roi=%t", version, s.MemoryAndTimeLimits, s.RegionOfInterest)
}

// Limits are the resource limits passed to engines that support them.
type Limits struct {
	// MemoryMB is the memory limit in megabytes (-M).
	MemoryMB int

	// Time is the engine's deterministic time limit (-T).
	Time int
}

// Options builds the connection options for one attempt: the configured
// base with capability-gated flags appended. base is not mutated.
func Options(base enginesup.ConnectionOptions, limits Limits, set Set) enginesup.ConnectionOptions {
	opts := base.Clone()
	if set.MemoryAndTimeLimits {
		opts.Args = append(opts.Args,
			"-M", strconv.Itoa(limits.MemoryMB),
			"-T", strconv.Itoa(limits.Time),
		)
	}
	return opts
}
