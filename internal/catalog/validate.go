package catalog

import (
	"fmt"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/alexanderramin/quitplan/internal/generation"
	"github.com/alexanderramin/quitplan/internal/rule"
	"github.com/alexanderramin/quitplan/internal/service"
)

// Validate checks the catalog before it is seeded and returns every problem
// found. Conditions are parsed so a malformed rule fails here rather than at
// evaluation time.
func Validate(c *Catalog) []error {
	var errs []error

	if err := generation.ValidateBlueprint(c.Phases()); err != nil {
		errs = append(errs, err)
	}
	blueprintKinds := map[domain.PhaseKind]bool{}
	for _, b := range c.Blueprint {
		if blueprintKinds[b.Kind] {
			errs = append(errs, fmt.Errorf("blueprint: phase kind %s appears more than once", b.Kind))
		}
		blueprintKinds[b.Kind] = true
	}

	typeRefs := map[string]bool{}
	errs = append(errs, validateMissionTypes(c.MissionTypes, typeRefs)...)
	errs = append(errs, validateMissions(c.Missions, typeRefs)...)
	errs = append(errs, validateConditions(c.Conditions)...)
	errs = append(errs, validateTemplates(c.Templates)...)

	for _, b := range c.Blueprint {
		if !hasMissionFor(c.Missions, b.Kind) {
			errs = append(errs, fmt.Errorf("blueprint: phase %s has no missions", b.Kind))
		}
	}
	return errs
}

func validateMissionTypes(types []MissionTypeEntry, refs map[string]bool) []error {
	var errs []error
	for i, mt := range types {
		prefix := fmt.Sprintf("mission_types[%d]", i)
		if mt.Code == "" {
			errs = append(errs, fmt.Errorf("%s.code is required", prefix))
			continue
		}
		if refs[mt.Code] {
			errs = append(errs, fmt.Errorf("%s: duplicate code %q", prefix, mt.Code))
		}
		if mt.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		refs[mt.Code] = true
	}
	return errs
}

func validateMissions(missions []MissionEntry, typeRefs map[string]bool) []error {
	var errs []error
	seen := map[string]bool{}
	for i, m := range missions {
		prefix := fmt.Sprintf("missions[%d]", i)
		if m.Code == "" {
			errs = append(errs, fmt.Errorf("%s.code is required", prefix))
		} else if seen[m.Code] {
			errs = append(errs, fmt.Errorf("%s: duplicate code %q", prefix, m.Code))
		}
		seen[m.Code] = true

		if m.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if !domain.ValidPhaseKinds[m.Phase] {
			errs = append(errs, fmt.Errorf("%s.phase: invalid phase kind %q", prefix, m.Phase))
		}
		if m.Type != "" && !typeRefs[m.Type] {
			errs = append(errs, fmt.Errorf("%s.type: unknown mission type %q", prefix, m.Type))
		}
		if m.DayFrom < 0 || m.DayTo < 0 {
			errs = append(errs, fmt.Errorf("%s: day range must not be negative", prefix))
		}
		if m.DayTo != 0 && m.DayTo < m.DayFrom {
			errs = append(errs, fmt.Errorf("%s: day_to %d is before day_from %d", prefix, m.DayTo, m.DayFrom))
		}
	}
	return errs
}

func validateConditions(conds []ConditionEntry) []error {
	var errs []error
	seen := map[string]bool{}
	for i, cond := range conds {
		prefix := fmt.Sprintf("conditions[%d]", i)
		if cond.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else if seen[cond.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate name %q", prefix, cond.Name))
		}
		seen[cond.Name] = true

		if !domain.ValidPhaseKinds[cond.Phase] {
			errs = append(errs, fmt.Errorf("%s.phase: invalid phase kind %q", prefix, cond.Phase))
		}
		expr, err := cond.ConditionExpression()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
			continue
		}
		if _, err := rule.ParseString(expr); err != nil {
			errs = append(errs, fmt.Errorf("%s %s: %w", prefix, cond.Name, err))
		}
	}
	return errs
}

func validateTemplates(templates []TemplateEntry) []error {
	sample := make(map[string]string, len(service.TemplateKeys))
	for _, k := range service.TemplateKeys {
		sample[k] = k
	}

	var errs []error
	type key struct {
		phase   domain.PhaseKind
		trigger domain.TriggerCode
	}
	seen := map[key]bool{}
	for i, t := range templates {
		prefix := fmt.Sprintf("templates[%d]", i)
		if !domain.ValidTriggerCodes[t.Trigger] {
			errs = append(errs, fmt.Errorf("%s.trigger: invalid trigger code %q", prefix, t.Trigger))
		}
		if t.Phase != "" && !domain.ValidPhaseKinds[t.Phase] {
			errs = append(errs, fmt.Errorf("%s.phase: invalid phase kind %q", prefix, t.Phase))
		}
		if t.Type != "" {
			if !domain.ValidReminderTypes[t.Type] {
				errs = append(errs, fmt.Errorf("%s.type: invalid reminder type %q", prefix, t.Type))
			} else if t.Type != t.Trigger.ReminderType() {
				errs = append(errs, fmt.Errorf("%s.type: %s is delivered as %s, not %s", prefix, t.Trigger, t.Trigger.ReminderType(), t.Type))
			}
		}
		if seen[key{t.Phase, t.Trigger}] {
			errs = append(errs, fmt.Errorf("%s: duplicate template for %s/%s", prefix, t.Phase, t.Trigger))
		}
		seen[key{t.Phase, t.Trigger}] = true

		if t.Content == "" {
			errs = append(errs, fmt.Errorf("%s.content is required", prefix))
		} else if _, err := service.RenderTemplate(t.Content, sample); err != nil {
			errs = append(errs, fmt.Errorf("%s.content: %w", prefix, err))
		}
	}
	return errs
}

func hasMissionFor(missions []MissionEntry, kind domain.PhaseKind) bool {
	for _, m := range missions {
		if m.Phase == kind {
			return true
		}
	}
	return false
}
