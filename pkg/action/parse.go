package action

import (
	"errors"
	"fmt"
	"strings"
)

// Shell verbs and option words.
const (
	VerbInclude     = "include"
	VerbIncludeStop = "include-stop"
	VerbExclude     = "exclude"
	VerbExcludeStop = "exclude-stop"

	WordHighPower   = "hp"
	WordNetworkWide = "nw"
)

// Parse errors.
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrUnknownOption = errors.New("unknown option")
)

// Parse builds an action from its verb form, e.g. "include hp nw".
// Options are only accepted by include.
func Parse(s string) (Action, error) {
	fields := strings.Fields(strings.ToLower(s))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrUnknownAction)
	}

	verb, opts := fields[0], fields[1:]

	switch verb {
	case VerbInclude:
		var a InclusionStart
		for _, o := range opts {
			switch o {
			case WordHighPower:
				a.HighPower = true
			case WordNetworkWide:
				a.NetworkWide = true
			default:
				return nil, fmt.Errorf("%w: %q", ErrUnknownOption, o)
			}
		}
		return a, nil
	case VerbIncludeStop:
		return noOptions(InclusionStop{}, opts)
	case VerbExclude:
		return noOptions(ExclusionStart{}, opts)
	case VerbExcludeStop:
		return noOptions(ExclusionStop{}, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, verb)
	}
}

func noOptions(a Action, opts []string) (Action, error) {
	if len(opts) > 0 {
		return nil, fmt.Errorf("%w: %q takes no options", ErrUnknownOption, a.String())
	}
	return a, nil
}
