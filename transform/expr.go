package transform

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/openwx/wxha/config"
)

// CompileExpressions builds transform entries from expression definitions in
// the host configuration. Expressions see `value` (the raw measurement) and
// `unit_system` (the symbolic system name) and are compiled once at startup.
func CompileExpressions(cfgs []config.TransformConfig) (map[string]Func, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}
	entries := make(map[string]Func, len(cfgs))
	for _, cfg := range cfgs {
		name := strings.TrimSpace(cfg.Name)
		if name == "" {
			return nil, fmt.Errorf("transform name must not be empty")
		}
		if !isValidIdentifier(name) {
			return nil, fmt.Errorf("invalid transform name %q", name)
		}
		if _, exists := entries[name]; exists {
			return nil, fmt.Errorf("duplicate transform %q", name)
		}
		expression := strings.TrimSpace(cfg.Expression)
		if expression == "" {
			return nil, fmt.Errorf("transform %s: expression must not be empty", name)
		}
		program, err := expr.Compile(expression, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables())
		if err != nil {
			return nil, fmt.Errorf("transform %s: compile: %w", name, err)
		}
		entries[name] = expressionFunc(name, program)
	}
	return entries, nil
}

func expressionFunc(name string, program *vm.Program) Func {
	return func(value any, ctx Context) (any, error) {
		env := map[string]interface{}{
			"value":       value,
			"unit_system": ctx.UnitSystem.String(),
		}
		result, err := expr.Run(program, env)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", name, err)
		}
		return result, nil
	}
}

func isValidIdentifier(name string) bool {
	for idx, r := range name {
		if idx == 0 && unicode.IsDigit(r) {
			return false
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return name != ""
}
