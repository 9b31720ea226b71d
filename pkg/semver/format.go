// Package semver versions the serialized topology snapshot so stored and
// published endpoint sets can be checked for compatibility before use.
package semver

import (
	"fmt"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:format"

// FormatVersion is the version written into every topology snapshot.
const FormatVersion = "1.0.0"

// SupportedRange is the range of snapshot versions this build can read.
const SupportedRange = "^1.0.0"

// IncompatibleError reports a snapshot written in an unsupported format.
type IncompatibleError struct {
	Version string
	Range   string
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("%s - topology format %s is outside supported range %s", logPrefix, e.Version, e.Range)
}

// CheckCompatible returns nil when version satisfies SupportedRange.
func CheckCompatible(version string) error {
	return checkRange(version, SupportedRange)
}

func checkRange(version, rng string) error {
	v, err := masterminds.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%s - invalid topology format version %q: %w", logPrefix, version, err)
	}
	c, err := masterminds.NewConstraint(rng)
	if err != nil {
		return fmt.Errorf("%s - invalid range %q: %w", logPrefix, rng, err)
	}
	if !c.Check(v) {
		return &IncompatibleError{Version: v.String(), Range: rng}
	}
	return nil
}
