package rule

import (
	"errors"
	"testing"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleComparison(t *testing.T) {
	n, err := ParseString(`{"field":"progress","operator":">=","value":80}`)
	require.NoError(t, err)

	cmp, ok := n.(Comparison)
	require.True(t, ok)
	assert.Equal(t, domain.MetricProgress, cmp.Metric)
	assert.Equal(t, OpGTE, cmp.Op)
	require.NotNil(t, cmp.Value)
	assert.Equal(t, 80.0, *cmp.Value)
	assert.Nil(t, cmp.Formula)
	assert.Equal(t, "progress >= 80", n.String())
}

func TestParse_NestedGroups(t *testing.T) {
	raw := `{
		"logic": "AND",
		"rules": [
			{"field": "progress", "operator": ">=", "value": 60},
			{"logic": "OR", "rules": [
				{"field": "craving_level_avg", "operator": "<", "value": 5.5},
				{"field": "smoke_free_days", "operator": ">", "value": 3}
			]}
		]
	}`
	n, err := ParseString(raw)
	require.NoError(t, err)

	and, ok := n.(Conjunction)
	require.True(t, ok)
	require.Len(t, and.Children, 2)
	_, ok = and.Children[1].(Disjunction)
	assert.True(t, ok)
	assert.Equal(t, "progress >= 60 AND (craving_level_avg < 5.5 OR smoke_free_days > 3)", n.String())
	assert.Equal(t,
		[]domain.Metric{domain.MetricCravingAvg, domain.MetricProgress, domain.MetricSmokeFreeDays},
		Metrics(n))
}

func TestParse_Formula(t *testing.T) {
	raw := `{"field":"avg_cigarettes","operator":"<=","formula":{"base":"initial_cigarettes","operator":"*","percent":0.5}}`
	n, err := ParseString(raw)
	require.NoError(t, err)

	cmp := n.(Comparison)
	require.NotNil(t, cmp.Formula)
	assert.Equal(t, domain.MetricInitialCigarettes, cmp.Formula.Base)
	assert.Equal(t, ArithMul, cmp.Formula.Op)
	assert.Equal(t, 0.5, cmp.Formula.Operand)
	assert.Equal(t, []domain.Metric{domain.MetricCigarettesAvg, domain.MetricInitialCigarettes}, Metrics(n))
}

func TestParse_LowercaseLogicAndDoubleEquals(t *testing.T) {
	n, err := ParseString(`{"logic":"or","rules":[{"field":"nrt_used","operator":"==","value":1}]}`)
	require.NoError(t, err)
	d, ok := n.(Disjunction)
	require.True(t, ok)
	assert.Equal(t, OpEQ, d.Children[0].(Comparison).Op)
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty input", ``},
		{"invalid json", `{"field":`},
		{"not an object", `[1,2]`},
		{"empty object", `{}`},
		{"unknown key", `{"field":"progress","operator":">=","value":1,"extra":true}`},
		{"unknown metric", `{"field":"heart_rate","operator":">=","value":1}`},
		{"unknown operator", `{"field":"progress","operator":"!=","value":1}`},
		{"missing operator", `{"field":"progress","value":1}`},
		{"missing value and formula", `{"field":"progress","operator":">="}`},
		{"both value and formula", `{"field":"progress","operator":">=","value":1,"formula":{"base":"progress","operator":"*","percent":1}}`},
		{"string value", `{"field":"progress","operator":">=","value":"80"}`},
		{"empty group", `{"logic":"AND","rules":[]}`},
		{"group without logic", `{"rules":[{"field":"progress","operator":">=","value":1}]}`},
		{"unknown logic", `{"logic":"XOR","rules":[{"field":"progress","operator":">=","value":1}]}`},
		{"mixed node", `{"logic":"AND","field":"progress","rules":[{"field":"progress","operator":">=","value":1}]}`},
		{"bad nested child", `{"logic":"AND","rules":[{"field":"progress","operator":">=","value":1},{"field":"nope","operator":">=","value":1}]}`},
		{"unknown formula base", `{"field":"progress","operator":">=","formula":{"base":"nope","operator":"*","percent":1}}`},
		{"unknown formula operator", `{"field":"progress","operator":">=","formula":{"base":"progress","operator":"^","percent":1}}`},
		{"formula without percent", `{"field":"progress","operator":">=","formula":{"base":"progress","operator":"*"}}`},
		{"formula divides by zero", `{"field":"progress","operator":">=","formula":{"base":"progress","operator":"/","percent":0}}`},
		{"trailing document", `{"field":"progress","operator":">=","value":80} {"oops"`},
		{"trailing brackets", `{"logic":"AND","rules":[{"field":"progress","operator":">=","value":80}]}]]]`},
		{"trailing object", `{"field":"progress","operator":">=","value":80}{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := ParseString(tc.raw)
			require.Error(t, err)
			assert.Nil(t, n)
			assert.ErrorIs(t, err, domain.ErrConditionParse)

			var pe *ParseError
			assert.True(t, errors.As(err, &pe))
		})
	}
}

func TestParse_ErrorPathPointsAtChild(t *testing.T) {
	_, err := ParseString(`{"logic":"AND","rules":[{"field":"progress","operator":">=","value":1},{"field":"nope","operator":">=","value":1}]}`)
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "$.rules[1]", pe.Path)
	assert.Contains(t, err.Error(), "nope")
}

func TestParse_DepthLimit(t *testing.T) {
	raw := `{"field":"progress","operator":">=","value":1}`
	for i := 0; i <= maxDepth+1; i++ {
		raw = `{"logic":"AND","rules":[` + raw + `]}`
	}
	_, err := ParseString(raw)
	assert.ErrorIs(t, err, domain.ErrConditionParse)
}
