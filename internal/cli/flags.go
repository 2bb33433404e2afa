package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alexanderramin/quitplan/internal/domain"
	"github.com/spf13/pflag"
)

// dateValue is a YYYY-MM-DD flag.
type dateValue struct {
	t *time.Time
}

func (d dateValue) String() string {
	if d.t == nil || d.t.IsZero() {
		return ""
	}
	return d.t.Format(domain.DateLayout)
}

func (d dateValue) Set(s string) error {
	parsed, err := domain.ParseDate(s)
	if err != nil {
		return fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	*d.t = parsed
	return nil
}

func (dateValue) Type() string { return "date" }

func dateVar(fs *pflag.FlagSet, dst *time.Time, name, usage string) {
	fs.Var(dateValue{t: dst}, name, usage)
}

// optionalInt is an int flag that stays nil unless given.
type optionalInt struct {
	v **int
}

func (o optionalInt) String() string {
	if *o.v == nil {
		return ""
	}
	return strconv.Itoa(**o.v)
}

func (o optionalInt) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*o.v = &n
	return nil
}

func (optionalInt) Type() string { return "int" }

// optionalFloat is a float flag that stays nil unless given.
type optionalFloat struct {
	v **float64
}

func (o optionalFloat) String() string {
	if *o.v == nil {
		return ""
	}
	return strconv.FormatFloat(**o.v, 'f', -1, 64)
}

func (o optionalFloat) Set(s string) error {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*o.v = &f
	return nil
}

func (optionalFloat) Type() string { return "float" }

func optionalIntVar(fs *pflag.FlagSet, dst **int, name, usage string) {
	fs.Var(optionalInt{v: dst}, name, usage)
}

func optionalFloatVar(fs *pflag.FlagSet, dst **float64, name, usage string) {
	fs.Var(optionalFloat{v: dst}, name, usage)
}

// memberVar registers the --member flag shared by member-scoped commands.
func memberVar(fs *pflag.FlagSet, dst *string) {
	fs.StringVarP(dst, "member", "m", "", "Member ID")
}

// resolvePlanID picks the plan from a positional ID or, failing that, the
// member's active plan.
func resolvePlanID(ctx context.Context, app *App, args []string, member string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if member == "" {
		return "", fmt.Errorf("a plan ID or --member is required")
	}
	plan, err := app.Plans.GetActivePlan(ctx, member)
	if err != nil {
		return "", fmt.Errorf("active plan for member %s: %w", member, err)
	}
	return plan.ID, nil
}
