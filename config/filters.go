package config

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/grovetools/queued/pkg/models"
	"github.com/moby/patternmatcher"
)

// Filters are the compiled forms of the filters section. A nil func
// accepts everything.
type Filters struct {
	Queue  func(q *models.Queue) bool
	Member func(m *models.QueueMember) bool
}

// CompileFilters compiles glob patterns and CEL expressions into predicates.
// Globs and expressions for the same target must both match.
func (c *Config) CompileFilters() (Filters, error) {
	var f Filters

	queueGlob, err := newGlob(c.Filters.Queues)
	if err != nil {
		return Filters{}, fmt.Errorf("filters.queues: %w", err)
	}
	queueExpr, err := newExprFilter(c.Filters.QueueExpr, queueVariables)
	if err != nil {
		return Filters{}, fmt.Errorf("filters.queue_expr: %w", err)
	}
	memberGlob, err := newGlob(c.Filters.Members)
	if err != nil {
		return Filters{}, fmt.Errorf("filters.members: %w", err)
	}
	memberExpr, err := newExprFilter(c.Filters.MemberExpr, memberVariables)
	if err != nil {
		return Filters{}, fmt.Errorf("filters.member_expr: %w", err)
	}

	if queueGlob != nil || queueExpr.enabled {
		f.Queue = func(q *models.Queue) bool {
			return queueGlob.match(q.Name) && queueExpr.eval(queueActivation(q))
		}
	}
	if memberGlob != nil || memberExpr.enabled {
		f.Member = func(m *models.QueueMember) bool {
			return memberGlob.match(m.Interface) && memberExpr.eval(memberActivation(m))
		}
	}
	return f, nil
}

// glob matches names against include patterns with "!" exclusions.
// Interfaces such as SIP/100 are treated as paths, so "SIP" and "SIP/*"
// both select every SIP member.
type glob struct {
	pm *patternmatcher.PatternMatcher
}

func newGlob(patterns []string) (*glob, error) {
	var cleaned []string
	includes := 0
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "!") {
			includes++
		}
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return nil, nil
	}
	if includes == 0 {
		// Exclusions alone mean "everything except".
		cleaned = append([]string{"*"}, cleaned...)
	}

	pm, err := patternmatcher.New(cleaned)
	if err != nil {
		return nil, err
	}
	return &glob{pm: pm}, nil
}

func (g *glob) match(name string) bool {
	if g == nil {
		return true
	}
	ok, err := g.pm.MatchesOrParentMatches(name)
	return err == nil && ok
}

var queueVariables = []cel.EnvOption{
	cel.Variable("name", cel.StringType),
	cel.Variable("strategy", cel.StringType),
	cel.Variable("calls", cel.IntType),
	cel.Variable("members", cel.IntType),
	cel.Variable("weight", cel.IntType),
	cel.Variable("server_id", cel.IntType),
}

var memberVariables = []cel.EnvOption{
	cel.Variable("queue", cel.StringType),
	cel.Variable("interface", cel.StringType),
	cel.Variable("name", cel.StringType),
	cel.Variable("state_interface", cel.StringType),
	cel.Variable("membership", cel.StringType),
	cel.Variable("status", cel.StringType),
	cel.Variable("penalty", cel.IntType),
	cel.Variable("paused", cel.BoolType),
	cel.Variable("in_call", cel.BoolType),
}

func queueActivation(q *models.Queue) map[string]any {
	return map[string]any{
		"name":      q.Name,
		"strategy":  q.Strategy,
		"calls":     int64(q.Calls),
		"members":   int64(len(q.Members)),
		"weight":    int64(q.Weight),
		"server_id": int64(q.ServerID),
	}
}

func memberActivation(m *models.QueueMember) map[string]any {
	return map[string]any{
		"queue":           m.Queue,
		"interface":       m.Interface,
		"name":            m.Name,
		"state_interface": m.StateInterface,
		"membership":      string(m.Membership),
		"status":          m.Status.String(),
		"penalty":         int64(m.Penalty),
		"paused":          m.Paused,
		"in_call":         m.InCall,
	}
}

// exprFilter wraps a compiled CEL program. When disabled, eval always
// returns true.
type exprFilter struct {
	prog    cel.Program
	enabled bool
}

func newExprFilter(expr string, vars []cel.EnvOption) (exprFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return exprFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(vars...)
	if err != nil {
		return exprFilter{}, err
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return exprFilter{}, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return exprFilter{}, fmt.Errorf("expression must evaluate to bool, got %s", ast.OutputType())
	}
	prog, err := env.Program(ast)
	if err != nil {
		return exprFilter{}, err
	}
	return exprFilter{prog: prog, enabled: true}, nil
}

func (f exprFilter) eval(vars map[string]any) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(vars)
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
