package summary

import (
	"fmt"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
)

// Period is an inclusive date range.
type Period struct {
	Start time.Time
	End   time.Time
}

func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

// ParseMonth accepts YYYY-MM.
func ParseMonth(v string) (Period, error) {
	t, err := time.Parse("2006-01", v)
	if err != nil {
		return Period{}, crerr.Wrapf(err, "parse month %q", v)
	}
	return MonthPeriod(t.Year(), t.Month()), nil
}

func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return crerr.New("period start and end are required")
	}
	if p.End.Before(p.Start) {
		return crerr.Newf("period end %s is before start %s", p.End.Format(time.DateOnly), p.Start.Format(time.DateOnly))
	}
	return nil
}

func (p Period) IsCalendarMonth() bool {
	s := p.Start.UTC()
	return s.Day() == 1 && p.End.UTC().Format(time.DateOnly) == s.AddDate(0, 1, -1).Format(time.DateOnly)
}

// Label is YYYY-MM for whole calendar months and start_end dates otherwise.
func (p Period) Label() string {
	if p.IsCalendarMonth() {
		return p.Start.UTC().Format("2006-01")
	}
	return fmt.Sprintf("%s_%s", p.Start.UTC().Format("20060102"), p.End.UTC().Format("20060102"))
}

type Outcome string

const (
	OutcomeWin  Outcome = "W"
	OutcomeDraw Outcome = "D"
	OutcomeLoss Outcome = "L"
)

type MatchLine struct {
	RecordID      string    `json:"record_id"`
	Date          time.Time `json:"date"`
	Opponent      string    `json:"opponent"`
	Competition   string    `json:"competition,omitempty"`
	Venue         string    `json:"venue,omitempty"`
	OwnScore      *int      `json:"own_score,omitempty"`
	OpponentScore *int      `json:"opponent_score,omitempty"`
	Outcome       Outcome   `json:"outcome,omitempty"`
	KeyMatch      bool      `json:"key_match"`
}

func (m MatchLine) margin() int {
	return *m.OwnScore - *m.OpponentScore
}

// PeriodSummary is derived per call and never persisted except as an audit snapshot.
type PeriodSummary struct {
	Kind              record.Kind `json:"kind"`
	PeriodStart       time.Time   `json:"period_start"`
	PeriodEnd         time.Time   `json:"period_end"`
	Count             int         `json:"count"`
	Wins              int         `json:"wins"`
	Draws             int         `json:"draws"`
	Losses            int         `json:"losses"`
	GoalsFor          int         `json:"goals_for"`
	GoalsAgainst      int         `json:"goals_against"`
	GoalDifference    int         `json:"goal_difference"`
	CleanSheets       int         `json:"clean_sheets"`
	Best              *MatchLine  `json:"best,omitempty"`
	Worst             *MatchLine  `json:"worst,omitempty"`
	KeyMatchCount     int         `json:"key_match_count"`
	Matches           []MatchLine `json:"matches"`
	NothingToReport   bool        `json:"nothing_to_report"`
	SourceUnavailable bool        `json:"source_unavailable,omitempty"`
	Error             string      `json:"error,omitempty"`
	OperationKey      string      `json:"operation_key,omitempty"`
}
