package record

import (
	"strings"
	"time"
)

type Kind string

const (
	KindFixtures Kind = "fixtures"
	KindResults  Kind = "results"
)

func ParseKind(v string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "fixtures", "fixture":
		return KindFixtures, true
	case "results", "result":
		return KindResults, true
	default:
		return "", false
	}
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusLive      Status = "live"
	StatusFinished  Status = "finished"
	StatusPostponed Status = "postponed"
)

func NormalizeStatus(v string) Status {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "live", "in_play":
		return StatusLive
	case "finished", "ft", "full_time":
		return StatusFinished
	case "postponed", "cancelled":
		return StatusPostponed
	default:
		return StatusScheduled
	}
}

// Ref addresses one row. Fixture and result rows share the match id.
type Ref struct {
	Kind Kind
	ID   string
}

// Record is one fixture or result row.
type Record struct {
	ID            string
	Kind          Kind
	Date          time.Time
	Club          string
	Opponent      string
	Competition   string
	Venue         string
	OwnScore      *int
	OpponentScore *int
	Status        Status
	Posted        bool
}

func (r Record) Ref() Ref {
	return Ref{Kind: r.Kind, ID: r.ID}
}

func (r Record) HasScore() bool {
	return r.OwnScore != nil && r.OpponentScore != nil
}

// Filter selects records by date window and involvement. Zero From/To leave
// that bound open; both bounds are inclusive at day granularity.
type Filter struct {
	From         time.Time
	To           time.Time
	Club         string
	OnlyUnposted bool
}

func (f Filter) Matches(r Record) bool {
	day := truncateDay(r.Date)
	if !f.From.IsZero() && day.Before(truncateDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(truncateDay(f.To)) {
		return false
	}
	if club := strings.TrimSpace(f.Club); club != "" && !strings.EqualFold(club, strings.TrimSpace(r.Club)) {
		return false
	}
	if f.OnlyUnposted && r.Posted {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type PlayerMinutes struct {
	PlayerID string
	Minutes  int
}

// MinutesReport is the frozen tracker output persisted at full time.
type MinutesReport struct {
	MatchID    string
	State      string
	Players    []PlayerMinutes
	RecordedAt time.Time
}
