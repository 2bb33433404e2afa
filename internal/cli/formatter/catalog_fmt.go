package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/quitplan/internal/catalog"
)

// FormatCatalog renders the blueprint, missions, conditions and templates.
func FormatCatalog(c *catalog.Catalog) string {
	var b strings.Builder

	b.WriteString(Header("Blueprint") + "\n")
	bp := NewTable("#", "PHASE", "DAYS")
	for i, e := range c.Blueprint {
		bp.AddRow(fmt.Sprintf("%d", i+1), PhaseBadge(e.Kind), fmt.Sprintf("%d", e.Days))
	}
	b.WriteString(bp.Render())

	b.WriteString("\n" + Header("Missions") + "\n")
	missions := NewTable("CODE", "PHASE", "DAYS", "TYPE", "NAME")
	for _, m := range c.Missions {
		days := "all"
		switch {
		case m.DayTo > 0:
			days = fmt.Sprintf("%d-%d", max(m.DayFrom, 1), m.DayTo)
		case m.DayFrom > 1:
			days = fmt.Sprintf("%d+", m.DayFrom)
		}
		name := m.Name
		if m.RequiresNRT {
			name += Dim(" (NRT)")
		}
		missions.AddRow(m.Code, PhaseBadge(m.Phase), days, orDash(m.Type), name)
	}
	b.WriteString(missions.Render())

	b.WriteString("\n" + Header("Conditions") + "\n")
	if len(c.Conditions) == 0 {
		b.WriteString(Dim("none") + "\n")
	} else {
		conds := NewTable("NAME", "PHASE", "RULE")
		for _, cond := range c.Conditions {
			expr, err := cond.ConditionExpression()
			if err != nil {
				expr = StyleRed.Render(err.Error())
			}
			conds.AddRow(cond.Name, PhaseBadge(cond.Phase), Dim(Truncate(expr, 70)))
		}
		b.WriteString(conds.Render())
	}

	b.WriteString("\n" + Header("Reminder templates") + "\n")
	tmpls := NewTable("PHASE", "TRIGGER", "TYPE", "CONTENT")
	for _, t := range c.ResolvedTemplates() {
		tmpls.AddRow(PhaseBadge(t.Phase), string(t.Trigger), string(t.Type), Truncate(t.Content, 60))
	}
	b.WriteString(tmpls.Render())

	return RenderBox("Catalog", b.String())
}

// FormatSeedResult summarizes a catalog load.
func FormatSeedResult(res *catalog.SeedResult) string {
	return fmt.Sprintf("Loaded %d phases, %d mission types, %d missions, %d conditions, %d reminder templates\n",
		res.Phases, res.MissionTypes, res.Missions, res.Conditions, res.Templates)
}
