package rule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alexanderramin/quitplan/internal/domain"
)

// Op is a comparison operator.
type Op string

const (
	OpGTE Op = ">="
	OpLTE Op = "<="
	OpGT  Op = ">"
	OpLT  Op = "<"
	OpEQ  Op = "="
)

var validOps = map[Op]bool{OpGTE: true, OpLTE: true, OpGT: true, OpLT: true, OpEQ: true}

// ArithOp combines a formula's base metric with its operand.
type ArithOp string

const (
	ArithMul ArithOp = "*"
	ArithDiv ArithOp = "/"
	ArithAdd ArithOp = "+"
	ArithSub ArithOp = "-"
)

var validArithOps = map[ArithOp]bool{ArithMul: true, ArithDiv: true, ArithAdd: true, ArithSub: true}

// Node is a condition tree node. The set of implementations is closed:
// Comparison, Conjunction and Disjunction.
type Node interface {
	node()
	String() string
}

// Comparison tests one metric against a literal Value or a Formula threshold.
// Exactly one of Value and Formula is set.
type Comparison struct {
	Metric  domain.Metric
	Op      Op
	Value   *float64
	Formula *Formula
}

// Formula derives a threshold from another metric, e.g. fm_cigarettes_total * 0.8.
type Formula struct {
	Base    domain.Metric
	Op      ArithOp
	Operand float64
}

// Conjunction holds when every child holds.
type Conjunction struct {
	Children []Node
}

// Disjunction holds when any child holds.
type Disjunction struct {
	Children []Node
}

func (Comparison) node()  {}
func (Conjunction) node() {}
func (Disjunction) node() {}

func (c Comparison) String() string {
	rhs := ""
	if c.Formula != nil {
		rhs = c.Formula.String()
	} else if c.Value != nil {
		rhs = formatNumber(*c.Value)
	}
	return fmt.Sprintf("%s %s %s", c.Metric, c.Op, rhs)
}

func (f Formula) String() string {
	return fmt.Sprintf("%s %s %s", f.Base, f.Op, formatNumber(f.Operand))
}

func (c Conjunction) String() string { return joinChildren(c.Children, " AND ") }

func (d Disjunction) String() string { return joinChildren(d.Children, " OR ") }

func joinChildren(children []Node, sep string) string {
	parts := make([]string, len(children))
	for i, ch := range children {
		s := ch.String()
		switch ch.(type) {
		case Conjunction, Disjunction:
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, sep)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Metrics returns the sorted, de-duplicated metrics a tree references,
// including formula base metrics.
func Metrics(n Node) []domain.Metric {
	seen := map[domain.Metric]bool{}
	collectMetrics(n, seen)
	out := make([]domain.Metric, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func collectMetrics(n Node, seen map[domain.Metric]bool) {
	switch v := n.(type) {
	case Comparison:
		seen[v.Metric] = true
		if v.Formula != nil {
			seen[v.Formula.Base] = true
		}
	case Conjunction:
		for _, ch := range v.Children {
			collectMetrics(ch, seen)
		}
	case Disjunction:
		for _, ch := range v.Children {
			collectMetrics(ch, seen)
		}
	}
}
