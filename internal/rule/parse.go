package rule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alexanderramin/quitplan/internal/domain"
)

// ParseError reports a malformed condition. It matches domain.ErrConditionParse.
type ParseError struct {
	Path   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("condition: %s", e.Reason)
	}
	return fmt.Sprintf("condition at %s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error { return domain.ErrConditionParse }

// rawNode mirrors the admin JSON shape:
//
//	{"logic":"AND","rules":[...]}
//	{"field":"progress","operator":">=","value":80}
//	{"field":"avg_cigarettes","operator":"<=","formula":{"base":"fm_cigarettes_total","operator":"*","percent":0.8}}
type rawNode struct {
	Logic    *string           `json:"logic"`
	Rules    []json.RawMessage `json:"rules"`
	Field    *string           `json:"field"`
	Operator *string           `json:"operator"`
	Value    json.RawMessage   `json:"value"`
	Formula  *rawFormula       `json:"formula"`
}

type rawFormula struct {
	Base     string          `json:"base"`
	Operator string          `json:"operator"`
	Percent  json.RawMessage `json:"percent"`
}

// maxDepth bounds nesting so a hostile document cannot exhaust the stack.
const maxDepth = 32

// Parse decodes and validates a condition tree. Any defect yields *ParseError;
// a malformed rule is never given a default truth value.
func Parse(raw []byte) (Node, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ParseError{Reason: "empty condition"}
	}
	return parseNode(raw, "$", 0)
}

// ParseString is Parse for string-stored expressions.
func ParseString(s string) (Node, error) {
	return Parse([]byte(s))
}

func parseNode(raw json.RawMessage, path string, depth int) (Node, error) {
	if depth > maxDepth {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("nesting deeper than %d", maxDepth)}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var rn rawNode
	if err := dec.Decode(&rn); err != nil {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Path: path, Reason: "unexpected data after the condition"}
	}

	isGroup := rn.Logic != nil || rn.Rules != nil
	isLeaf := rn.Field != nil || rn.Operator != nil || len(rn.Value) > 0 || rn.Formula != nil
	switch {
	case isGroup && isLeaf:
		return nil, &ParseError{Path: path, Reason: "node mixes logic group and comparison fields"}
	case isGroup:
		return parseGroup(rn, path, depth)
	case isLeaf:
		return parseComparison(rn, path)
	default:
		return nil, &ParseError{Path: path, Reason: "node is neither a logic group nor a comparison"}
	}
}

func parseGroup(rn rawNode, path string, depth int) (Node, error) {
	if rn.Logic == nil {
		return nil, &ParseError{Path: path, Reason: "logic is required for a rule group"}
	}
	if len(rn.Rules) == 0 {
		return nil, &ParseError{Path: path, Reason: "rule group has no rules"}
	}

	children := make([]Node, 0, len(rn.Rules))
	for i, childRaw := range rn.Rules {
		child, err := parseNode(childRaw, fmt.Sprintf("%s.rules[%d]", path, i), depth+1)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	switch strings.ToUpper(strings.TrimSpace(*rn.Logic)) {
	case "AND":
		return Conjunction{Children: children}, nil
	case "OR":
		return Disjunction{Children: children}, nil
	default:
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("unknown logic %q", *rn.Logic)}
	}
}

func parseComparison(rn rawNode, path string) (Node, error) {
	if rn.Field == nil || *rn.Field == "" {
		return nil, &ParseError{Path: path, Reason: "field is required"}
	}
	metric := domain.Metric(*rn.Field)
	if !domain.ValidMetrics[metric] {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("unknown field %q", *rn.Field)}
	}
	if rn.Operator == nil {
		return nil, &ParseError{Path: path, Reason: "operator is required"}
	}
	op := Op(strings.TrimSpace(*rn.Operator))
	if op == "==" {
		op = OpEQ
	}
	if !validOps[op] {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("unknown operator %q", *rn.Operator)}
	}

	hasValue := len(rn.Value) > 0 && string(rn.Value) != "null"
	hasFormula := rn.Formula != nil
	if hasValue == hasFormula {
		return nil, &ParseError{Path: path, Reason: "exactly one of value and formula is required"}
	}

	cmp := Comparison{Metric: metric, Op: op}
	if hasValue {
		v, err := parseNumber(rn.Value)
		if err != nil {
			return nil, &ParseError{Path: path + ".value", Reason: err.Error()}
		}
		cmp.Value = &v
		return cmp, nil
	}

	f, err := parseFormula(rn.Formula, path+".formula")
	if err != nil {
		return nil, err
	}
	cmp.Formula = f
	return cmp, nil
}

func parseFormula(rf *rawFormula, path string) (*Formula, error) {
	base := domain.Metric(rf.Base)
	if !domain.ValidMetrics[base] {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("unknown base %q", rf.Base)}
	}
	op := ArithOp(strings.TrimSpace(rf.Operator))
	if op == "" {
		op = ArithMul
	}
	if !validArithOps[op] {
		return nil, &ParseError{Path: path, Reason: fmt.Sprintf("unknown formula operator %q", rf.Operator)}
	}
	if len(rf.Percent) == 0 || string(rf.Percent) == "null" {
		return nil, &ParseError{Path: path, Reason: "percent is required"}
	}
	operand, err := parseNumber(rf.Percent)
	if err != nil {
		return nil, &ParseError{Path: path + ".percent", Reason: err.Error()}
	}
	if op == ArithDiv && operand == 0 {
		return nil, &ParseError{Path: path, Reason: "division by zero"}
	}
	return &Formula{Base: base, Op: op, Operand: operand}, nil
}

func parseNumber(raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, fmt.Errorf("expected a number, got %s", string(raw))
	}
	return v, nil
}
