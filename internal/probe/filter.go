package probe

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
)

// Filter decides whether a probe hit on task is recorded. It runs before any
// table mutation on both entry and exit.
type Filter func(Task) bool

// ProcessFilter accepts only tasks of the given process. A zero tgid accepts
// everything.
func ProcessFilter(tgid uint32) Filter {
	if tgid == 0 {
		return nil
	}
	return func(t Task) bool { return t.TGID == tgid }
}

// AllOf combines filters; nil entries are skipped.
func AllOf(filters ...Filter) Filter {
	var active []Filter
	for _, f := range filters {
		if f != nil {
			active = append(active, f)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(t Task) bool {
		for _, f := range active {
			if !f(t) {
				return false
			}
		}
		return true
	}
}

// CompileFilter builds a Filter from a CEL expression over the variables
// `pid` (thread id) and `tgid` (process id), e.g. `tgid == 4242 && pid % 2 == 0`.
// An empty expression yields a nil filter.
//
// CEL evaluation allocates; use it for in-process probes on code that is not
// itself allocation sensitive, or prefer ProcessFilter.
func CompileFilter(expr string) (Filter, error) {
	if expr == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("pid", cel.IntType),
		cel.Variable("tgid", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create filter environment: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile filter %q: %w", expr, iss.Err())
	}
	if !reflect.DeepEqual(ast.OutputType(), cel.BoolType) {
		return nil, fmt.Errorf("filter %q must evaluate to bool, got %v", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build filter program: %w", err)
	}

	return func(t Task) bool {
		out, _, err := prg.Eval(map[string]any{
			"pid":  int64(t.Context),
			"tgid": int64(t.TGID),
		})
		if err != nil {
			return false
		}
		ok, _ := out.Value().(bool)
		return ok
	}, nil
}
