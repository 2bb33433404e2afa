package rule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/quitplan/internal/domain"
)

// Result is the outcome of evaluating a tree against a snapshot.
// Missing lists referenced metrics absent from the snapshot; when non-empty
// Satisfied is false.
type Result struct {
	Satisfied bool
	Missing   []domain.Metric
}

// Evaluate applies the tree to the snapshot. It never mutates either argument.
func Evaluate(n Node, s domain.MetricsSnapshot) Result {
	missing := map[domain.Metric]bool{}
	for _, m := range Metrics(n) {
		if _, ok := s.Get(m); !ok {
			missing[m] = true
		}
	}
	if len(missing) > 0 {
		return Result{Satisfied: false, Missing: sortedMetrics(missing)}
	}
	return Result{Satisfied: eval(n, s)}
}

func eval(n Node, s domain.MetricsSnapshot) bool {
	switch v := n.(type) {
	case Comparison:
		return evalComparison(v, s)
	case Conjunction:
		for _, ch := range v.Children {
			if !eval(ch, s) {
				return false
			}
		}
		return true
	case Disjunction:
		for _, ch := range v.Children {
			if eval(ch, s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func evalComparison(c Comparison, s domain.MetricsSnapshot) bool {
	lhs, _ := s.Get(c.Metric)
	var rhs float64
	switch {
	case c.Formula != nil:
		base, _ := s.Get(c.Formula.Base)
		rhs = c.Formula.apply(base)
	case c.Value != nil:
		rhs = *c.Value
	default:
		return false
	}

	switch c.Op {
	case OpGTE:
		return lhs >= rhs
	case OpLTE:
		return lhs <= rhs
	case OpGT:
		return lhs > rhs
	case OpLT:
		return lhs < rhs
	case OpEQ:
		return lhs == rhs
	default:
		return false
	}
}

func (f Formula) apply(base float64) float64 {
	switch f.Op {
	case ArithMul:
		return base * f.Operand
	case ArithDiv:
		return base / f.Operand
	case ArithAdd:
		return base + f.Operand
	case ArithSub:
		return base - f.Operand
	default:
		return base
	}
}

// Compiled is a stored condition paired with its parsed tree.
type Compiled struct {
	Condition domain.SystemPhaseCondition
	Root      Node
}

// Compile parses a stored condition. The error names the condition.
func Compile(c domain.SystemPhaseCondition) (Compiled, error) {
	root, err := ParseString(c.Expression)
	if err != nil {
		return Compiled{}, fmt.Errorf("condition %q: %w", c.Name, err)
	}
	return Compiled{Condition: c, Root: root}, nil
}

// CompileAll parses every condition and stops at the first malformed one.
func CompileAll(conds []domain.SystemPhaseCondition) ([]Compiled, error) {
	out := make([]Compiled, 0, len(conds))
	for _, c := range conds {
		cc, err := Compile(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cc)
	}
	return out, nil
}

// Outcome is the per-condition part of a combined evaluation.
type Outcome struct {
	Name      string
	Rule      string
	Satisfied bool
	Missing   []domain.Metric
}

// Combined is the conjunction of several conditions for one phase kind.
type Combined struct {
	Result
	Outcomes []Outcome
}

// Reason summarizes which conditions held, failed, or lacked data.
func (c Combined) Reason() string {
	if len(c.Outcomes) == 0 {
		return "no conditions configured"
	}
	parts := make([]string, 0, len(c.Outcomes))
	for _, o := range c.Outcomes {
		switch {
		case len(o.Missing) > 0:
			names := make([]string, len(o.Missing))
			for i, m := range o.Missing {
				names[i] = string(m)
			}
			parts = append(parts, fmt.Sprintf("%s: missing %s", o.Name, strings.Join(names, ",")))
		case o.Satisfied:
			parts = append(parts, fmt.Sprintf("%s: met", o.Name))
		default:
			parts = append(parts, fmt.Sprintf("%s: not met (%s)", o.Name, o.Rule))
		}
	}
	return strings.Join(parts, "; ")
}

// EvaluateAll requires every condition to hold. An empty set is satisfied.
func EvaluateAll(conds []Compiled, s domain.MetricsSnapshot) Combined {
	out := Combined{Result: Result{Satisfied: true}}
	missing := map[domain.Metric]bool{}
	for _, c := range conds {
		r := Evaluate(c.Root, s)
		out.Outcomes = append(out.Outcomes, Outcome{
			Name:      c.Condition.Name,
			Rule:      c.Root.String(),
			Satisfied: r.Satisfied,
			Missing:   r.Missing,
		})
		if !r.Satisfied {
			out.Satisfied = false
		}
		for _, m := range r.Missing {
			missing[m] = true
		}
	}
	if len(missing) > 0 {
		out.Missing = sortedMetrics(missing)
	}
	return out
}

func sortedMetrics(set map[domain.Metric]bool) []domain.Metric {
	out := make([]domain.Metric, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
