package main

import (
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
	"github.com/spf13/cobra"
)

// periodFlags resolves exactly one of: --month, --from/--to, --next-month or
// --previous-month. Fixtures are usually posted for the next month and
// results for the previous one.
type periodFlags struct {
	month    string
	from     string
	to       string
	next     bool
	previous bool
}

func (f *periodFlags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.month, "month", "", "calendar month YYYY-MM")
	pf.StringVar(&f.from, "from", "", "inclusive start date YYYY-MM-DD")
	pf.StringVar(&f.to, "to", "", "inclusive end date YYYY-MM-DD")
	pf.BoolVar(&f.next, "next-month", false, "use the calendar month after today")
	pf.BoolVar(&f.previous, "previous-month", false, "use the calendar month before today")
}

func (f *periodFlags) resolve(now time.Time) (summary.Period, error) {
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	var (
		period summary.Period
		set    int
	)
	if f.month != "" {
		p, err := summary.ParseMonth(f.month)
		if err != nil {
			return summary.Period{}, err
		}
		period = p
		set++
	}
	if f.from != "" || f.to != "" {
		from, err := time.Parse(time.DateOnly, f.from)
		if err != nil {
			return summary.Period{}, crerr.Wrap(err, "parse --from")
		}
		to, err := time.Parse(time.DateOnly, f.to)
		if err != nil {
			return summary.Period{}, crerr.Wrap(err, "parse --to")
		}
		period = summary.Period{Start: from, End: to}
		set++
	}
	if f.next {
		next := thisMonth.AddDate(0, 1, 0)
		period = summary.MonthPeriod(next.Year(), next.Month())
		set++
	}
	if f.previous {
		prev := thisMonth.AddDate(0, -1, 0)
		period = summary.MonthPeriod(prev.Year(), prev.Month())
		set++
	}

	switch set {
	case 0:
		return summary.Period{}, crerr.New("one of --month, --from/--to, --next-month or --previous-month is required")
	case 1:
	default:
		return summary.Period{}, crerr.New("period flags are mutually exclusive")
	}
	if err := period.Validate(); err != nil {
		return summary.Period{}, err
	}
	return period, nil
}
