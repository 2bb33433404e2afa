// Package catalog loads the admin-authored data a plan is built from: the
// phase blueprint, mission templates, advancement conditions and reminder
// templates.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/alexanderramin/quitplan/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is the top-level YAML document.
type Catalog struct {
	Blueprint    []BlueprintEntry   `yaml:"blueprint"`
	MissionTypes []MissionTypeEntry `yaml:"mission_types,omitempty"`
	Missions     []MissionEntry     `yaml:"missions"`
	Conditions   []ConditionEntry   `yaml:"conditions,omitempty"`
	Templates    []TemplateEntry    `yaml:"templates"`
}

// BlueprintEntry is one phase of a new plan, in file order.
type BlueprintEntry struct {
	Kind domain.PhaseKind `yaml:"kind"`
	Days int              `yaml:"days"`
}

type MissionTypeEntry struct {
	Code        string `yaml:"code"`
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
}

type MissionEntry struct {
	Code        string           `yaml:"code"`
	Name        string           `yaml:"name"`
	Description string           `yaml:"description,omitempty"`
	Category    string           `yaml:"category,omitempty"`
	Type        string           `yaml:"type,omitempty"`
	Phase       domain.PhaseKind `yaml:"phase"`
	DayFrom     int              `yaml:"day_from,omitempty"`
	DayTo       int              `yaml:"day_to,omitempty"`
	Position    int              `yaml:"position,omitempty"`
	RequiresNRT bool             `yaml:"requires_nrt,omitempty"`
}

// ConditionEntry holds a rule either as a nested YAML tree (Rule) or as the
// raw JSON expression (Expression). Expression wins when both are set.
type ConditionEntry struct {
	Name       string           `yaml:"name"`
	Phase      domain.PhaseKind `yaml:"phase"`
	Rule       any              `yaml:"rule,omitempty"`
	Expression string           `yaml:"expression,omitempty"`
}

// TemplateEntry is reminder content for one trigger. An empty Phase applies
// the content to every blueprint phase that has no phase-specific entry; an
// empty Type uses the trigger's reminder type.
type TemplateEntry struct {
	Phase   domain.PhaseKind    `yaml:"phase,omitempty"`
	Trigger domain.TriggerCode  `yaml:"trigger"`
	Type    domain.ReminderType `yaml:"type,omitempty"`
	Content string              `yaml:"content"`
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadDefault returns the catalog compiled into the binary.
func LoadDefault() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes a catalog document. Unknown keys are rejected.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &c, nil
}

// ConditionExpression returns the JSON form of the entry's rule.
func (e ConditionEntry) ConditionExpression() (string, error) {
	if e.Expression != "" {
		return e.Expression, nil
	}
	if e.Rule == nil {
		return "", fmt.Errorf("condition %s: rule is required", e.Name)
	}
	raw, err := json.Marshal(e.Rule)
	if err != nil {
		return "", fmt.Errorf("condition %s: encoding rule: %w", e.Name, err)
	}
	return string(raw), nil
}

// Phases returns the blueprint with order indexes assigned from file order.
func (c *Catalog) Phases() []domain.BlueprintPhase {
	phases := make([]domain.BlueprintPhase, len(c.Blueprint))
	for i, b := range c.Blueprint {
		phases[i] = domain.BlueprintPhase{Kind: b.Kind, OrderIndex: i, DurationDays: b.Days}
	}
	return phases
}

// ResolvedTemplate is a template entry bound to one phase kind.
type ResolvedTemplate struct {
	Phase   domain.PhaseKind
	Type    domain.ReminderType
	Trigger domain.TriggerCode
	Content string
}

// ResolvedTemplates expands phase-less entries across the blueprint kinds.
// Phase-specific entries override the shared ones for their kind.
func (c *Catalog) ResolvedTemplates() []ResolvedTemplate {
	type key struct {
		phase   domain.PhaseKind
		trigger domain.TriggerCode
	}
	specific := map[key]TemplateEntry{}
	for _, t := range c.Templates {
		if t.Phase != "" {
			specific[key{t.Phase, t.Trigger}] = t
		}
	}

	out := map[key]ResolvedTemplate{}
	resolve := func(phase domain.PhaseKind, t TemplateEntry) {
		typ := t.Type
		if typ == "" {
			typ = t.Trigger.ReminderType()
		}
		out[key{phase, t.Trigger}] = ResolvedTemplate{Phase: phase, Type: typ, Trigger: t.Trigger, Content: t.Content}
	}
	for _, t := range c.Templates {
		if t.Phase != "" {
			resolve(t.Phase, t)
			continue
		}
		for _, b := range c.Blueprint {
			if _, ok := specific[key{b.Kind, t.Trigger}]; !ok {
				resolve(b.Kind, t)
			}
		}
	}

	resolved := make([]ResolvedTemplate, 0, len(out))
	for _, r := range out {
		resolved = append(resolved, r)
	}
	sort.Slice(resolved, func(i, j int) bool {
		if resolved[i].Phase != resolved[j].Phase {
			return resolved[i].Phase < resolved[j].Phase
		}
		return resolved[i].Trigger < resolved[j].Trigger
	})
	return resolved
}
