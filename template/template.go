// Package template expands {{ CEL expression }} placeholders in declaration templates.
package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/k1LoW/errors"
)

var exprRe = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Expand evaluates every {{expression}} in tmpl against store and substitutes the result.
func Expand(tmpl string, store map[string]any) (_ string, err error) {
	defer func() {
		err = errors.WithStack(err)
	}()
	if !exprRe.MatchString(tmpl) {
		return tmpl, nil
	}
	env, err := newEnv(store)
	if err != nil {
		return "", fmt.Errorf("failed to create CEL environment: %w", err)
	}
	var (
		sb   strings.Builder
		last int
	)
	for _, loc := range exprRe.FindAllStringSubmatchIndex(tmpl, -1) {
		sb.WriteString(tmpl[last:loc[0]])
		expr := strings.TrimSpace(tmpl[loc[2]:loc[3]])
		v, err := eval(env, expr, store)
		if err != nil {
			return "", err
		}
		sb.WriteString(v)
		last = loc[1]
	}
	sb.WriteString(tmpl[last:])
	return sb.String(), nil
}

// Variables returns the names referenced by the placeholders of tmpl, sorted and deduplicated.
// Only plain identifiers are reported; complex expressions are skipped.
func Variables(tmpl string) []string {
	seen := map[string]struct{}{}
	for _, m := range exprRe.FindAllStringSubmatch(tmpl, -1) {
		name := strings.TrimSpace(m[1])
		if identRe.MatchString(name) {
			seen[name] = struct{}{}
		}
	}
	vars := make([]string, 0, len(seen))
	for k := range seen {
		vars = append(vars, k)
	}
	sort.Strings(vars)
	return vars
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func eval(env *cel.Env, expr string, store map[string]any) (string, error) {
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return "", fmt.Errorf("failed to compile {{%s}}: %w", expr, iss.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return "", fmt.Errorf("failed to build program for {{%s}}: %w", expr, err)
	}
	out, _, err := prg.Eval(store)
	if err != nil {
		return "", fmt.Errorf("failed to evaluate {{%s}}: %w", expr, err)
	}
	return fmt.Sprintf("%v", out.Value()), nil
}

func newEnv(store map[string]any) (*cel.Env, error) {
	opts := make([]cel.EnvOption, 0, len(store))
	for k, v := range store {
		opts = append(opts, cel.Variable(k, celType(v)))
	}
	return cel.NewEnv(opts...)
}

func celType(v any) *cel.Type {
	switch v.(type) {
	case string:
		return cel.StringType
	case int, int32, int64:
		return cel.IntType
	case uint, uint32, uint64:
		return cel.UintType
	case float32, float64:
		return cel.DoubleType
	case bool:
		return cel.BoolType
	case map[string]string:
		return cel.MapType(cel.StringType, cel.StringType)
	case map[string]any:
		return cel.MapType(cel.StringType, cel.AnyType)
	case []string:
		return cel.ListType(cel.StringType)
	default:
		return cel.AnyType
	}
}
