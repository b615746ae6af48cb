package jobs

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"kollektor/internal/config"
)

// BuildCommand maps a kind schema plus operator parameters to the argv
// of the external collector. Pure function: the base command followed by
// flag/value pairs for present, truthy parameters in declared option
// order. Absent, false or empty parameters contribute nothing.
//
// Parameter values arrive JSON-decoded, so numbers are float64 and
// lists are []any.
func BuildCommand(spec config.KindSpec, params map[string]any) ([]string, error) {
	declared := make(map[string]bool, len(spec.Options))
	for _, opt := range spec.Options {
		declared[opt.Name] = true
	}

	// Reject unrecognized keys first, in deterministic order.
	unknown := make([]string, 0)
	for key := range params {
		if !declared[key] {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &ValidationError{Field: unknown[0], Reason: "unrecognized parameter"}
	}

	argv := append([]string(nil), spec.Command...)

	for _, opt := range spec.Options {
		value, ok := params[opt.Name]
		if !ok || value == nil {
			continue
		}

		switch opt.Type {
		case config.OptionString:
			s, ok := value.(string)
			if !ok {
				return nil, &ValidationError{Field: opt.Name, Reason: "expected a string"}
			}
			if s != "" {
				argv = append(argv, opt.Flag, s)
			}

		case config.OptionBool:
			b, ok := value.(bool)
			if !ok {
				return nil, &ValidationError{Field: opt.Name, Reason: "expected a boolean"}
			}
			if b {
				argv = append(argv, opt.Flag)
			}

		case config.OptionInt:
			f, ok := value.(float64)
			if !ok || f != math.Trunc(f) {
				return nil, &ValidationError{Field: opt.Name, Reason: "expected an integer"}
			}
			if f != 0 {
				argv = append(argv, opt.Flag, strconv.Itoa(int(f)))
			}

		case config.OptionEnum:
			s, ok := value.(string)
			if !ok {
				return nil, &ValidationError{Field: opt.Name, Reason: "expected a string"}
			}
			if s == "" {
				continue
			}
			if !contains(opt.Values, s) {
				return nil, &ValidationError{Field: opt.Name, Reason: fmt.Sprintf("%q is not one of %v", s, opt.Values)}
			}
			argv = append(argv, opt.Flag, s)

		case config.OptionEnumList:
			list, ok := value.([]any)
			if !ok {
				return nil, &ValidationError{Field: opt.Name, Reason: "expected a list"}
			}
			for _, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, &ValidationError{Field: opt.Name, Reason: "expected a list of strings"}
				}
				if !contains(opt.Values, s) {
					return nil, &ValidationError{Field: opt.Name, Reason: fmt.Sprintf("%q is not one of %v", s, opt.Values)}
				}
				argv = append(argv, opt.Flag, s)
			}

		default:
			return nil, &ValidationError{Field: opt.Name, Reason: fmt.Sprintf("unknown option type %q", opt.Type)}
		}
	}

	return argv, nil
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
