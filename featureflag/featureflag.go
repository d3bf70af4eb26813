package featureflag

import (
	"sort"
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ErrTypeUnknownFlag = "featureflag_unknown"
)

// FeatureFlag is the set of flags switched on for a kenaz process. A nil set
// has every flag off.
type FeatureFlag map[Flag]struct{}

// Parse reads flag names as given on the command line. Names are trimmed and
// matched without case. Unknown names are reported in the returned error
// while the known ones are still set.
func Parse(names []string) (FeatureFlag, error) {
	f := make(FeatureFlag, len(names))

	var unknown []string
	for _, name := range names {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}

		flag := Flag(name)
		if !flag.Known() {
			unknown = append(unknown, name)
			continue
		}
		f[flag] = struct{}{}
	}

	if len(unknown) != 0 {
		return f, errors.New("unknown feature flags").
			WithType(ErrTypeUnknownFlag).
			WithTag("flags", unknown)
	}
	return f, nil
}

// Of returns the set holding flags.
func Of(flags ...Flag) FeatureFlag {
	f := make(FeatureFlag, len(flags))
	for _, flag := range flags {
		f[flag] = struct{}{}
	}
	return f
}

func (f FeatureFlag) IsSet(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// Names returns the set flags in alphabetical order.
func (f FeatureFlag) Names() []string {
	names := make([]string, 0, len(f))
	for flag := range f {
		names = append(names, string(flag))
	}
	sort.Strings(names)
	return names
}

// Toggles returns the simulation switches selected by the set.
func (f FeatureFlag) Toggles() Toggles {
	return Toggles{
		Movement:      !f.IsSet(FlagDisableMovement),
		RayQueries:    !f.IsSet(FlagDisableRayQueries),
		VolumeQueries: !f.IsSet(FlagDisableVolumeQueries),
		ValidateIndex: f.IsSet(FlagValidateIndex),
	}
}
