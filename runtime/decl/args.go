package decl

import (
	"reflect"
	"sort"
	"strings"

	rterrors "github.com/conduit-lang/mirror/runtime/errors"
)

// Arguments is the typed argument structure passed to constructors, methods
// and functions: an ordered positional list plus a named map.
type Arguments struct {
	Positional []any
	Named      map[string]any
}

// Args builds Arguments from positional values.
func Args(positional ...any) Arguments {
	return Arguments{Positional: positional}
}

// With returns a copy with the named argument set.
func (a Arguments) With(name string, value any) Arguments {
	named := make(map[string]any, len(a.Named)+1)
	for k, v := range a.Named {
		named[k] = v
	}
	named[name] = value
	return Arguments{Positional: copySlice(a.Positional), Named: named}
}

// Resolver performs construction, dispatch and field access on behalf of
// the declaration model. Top-level functions and package-level fields are
// addressed by qualified name with a nil instance.
type Resolver interface {
	NewInstance(constructor string, owner reflect.Type, positional []any, named map[string]any) (any, error)
	InvokeMethod(instance any, name string, positional []any, named map[string]any) (any, error)
	GetValue(instance any, field string) (any, error)
	SetValue(instance any, field string, value any) error
}

// ValidateArguments checks args against params and returns a normalised
// copy in which missing named parameters with defaults carry the default.
// Unexpected named arguments are reported before missing ones.
func ValidateArguments(owner string, params []*ParameterDeclaration, args Arguments) (Arguments, error) {
	var positional []*ParameterDeclaration
	named := make(map[string]*ParameterDeclaration)
	var variadic bool
	for _, p := range params {
		if p.named {
			named[p.name] = p
			continue
		}
		positional = append(positional, p)
		variadic = variadic || p.variadic
	}
	sort.SliceStable(positional, func(i, j int) bool { return positional[i].index < positional[j].index })

	if !variadic && len(args.Positional) > len(positional) {
		return Arguments{}, rterrors.NewTooManyPositional(owner, len(positional), len(args.Positional))
	}
	for i, p := range positional {
		if i >= len(args.Positional) && !p.optional {
			return Arguments{}, rterrors.NewMissingPositional(owner, p.name, p.index)
		}
	}

	keys := make([]string, 0, len(args.Named))
	for k := range args.Named {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := named[k]; !ok {
			accepted := make([]string, 0, len(named))
			for n := range named {
				accepted = append(accepted, n)
			}
			sort.Strings(accepted)
			err := rterrors.NewUnexpectedNamed(owner, k)
			if len(accepted) > 0 {
				err = err.WithDetail("accepted: " + strings.Join(accepted, ", "))
			}
			return Arguments{}, err
		}
	}

	out := Arguments{Positional: copySlice(args.Positional), Named: make(map[string]any, len(named))}
	names := make([]string, 0, len(named))
	for n := range named {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		p := named[n]
		if v, ok := args.Named[n]; ok {
			out.Named[n] = v
			continue
		}
		if !p.optional {
			return Arguments{}, rterrors.NewMissingNamed(owner, n)
		}
		if p.hasDefault {
			out.Named[n] = p.defaultVal
		}
	}
	return out, nil
}
