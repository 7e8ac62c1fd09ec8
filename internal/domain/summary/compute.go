package summary

import (
	"sort"
	"strings"

	"github.com/riskibarqy/matchday-relay/internal/domain/record"
)

// KeyMatchPredicate flags a match when any keyword occurs in the opponent or
// competition text, ignoring case.
type KeyMatchPredicate struct {
	keywords []string
}

func NewKeyMatchPredicate(keywords []string) KeyMatchPredicate {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			out = append(out, k)
		}
	}
	return KeyMatchPredicate{keywords: out}
}

func (p KeyMatchPredicate) Matches(opponent, competition string) bool {
	if len(p.keywords) == 0 {
		return false
	}
	text := strings.ToLower(opponent + " " + competition)
	for _, k := range p.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

type Input struct {
	Kind     record.Kind
	Period   Period
	Club     string
	Records  []record.Record
	KeyMatch KeyMatchPredicate
}

// Compute builds the summary for records inside the period that involve the
// club. Records are ordered by date; ties keep source order.
func Compute(in Input) PeriodSummary {
	filter := record.Filter{From: in.Period.Start, To: in.Period.End, Club: in.Club}

	selected := make([]record.Record, 0, len(in.Records))
	for _, r := range in.Records {
		if filter.Matches(r) {
			selected = append(selected, r)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Date.Before(selected[j].Date)
	})

	out := PeriodSummary{
		Kind:        in.Kind,
		PeriodStart: in.Period.Start,
		PeriodEnd:   in.Period.End,
		Count:       len(selected),
		Matches:     make([]MatchLine, 0, len(selected)),
	}
	if len(selected) == 0 {
		out.NothingToReport = true
		return out
	}

	for _, r := range selected {
		line := MatchLine{
			RecordID:    r.ID,
			Date:        r.Date,
			Opponent:    r.Opponent,
			Competition: r.Competition,
			Venue:       r.Venue,
			KeyMatch:    in.KeyMatch.Matches(r.Opponent, r.Competition),
		}
		if line.KeyMatch {
			out.KeyMatchCount++
		}

		if in.Kind == record.KindResults && r.HasScore() {
			line.OwnScore = r.OwnScore
			line.OpponentScore = r.OpponentScore
			line.Outcome = outcomeOf(*r.OwnScore, *r.OpponentScore)
			switch line.Outcome {
			case OutcomeWin:
				out.Wins++
			case OutcomeDraw:
				out.Draws++
			case OutcomeLoss:
				out.Losses++
			}
			out.GoalsFor += *r.OwnScore
			out.GoalsAgainst += *r.OpponentScore
			if *r.OpponentScore == 0 {
				out.CleanSheets++
			}
		}
		out.Matches = append(out.Matches, line)
	}
	out.GoalDifference = out.GoalsFor - out.GoalsAgainst
	out.Best, out.Worst = extremes(out.Matches)

	return out
}

func outcomeOf(own, opp int) Outcome {
	switch {
	case own > opp:
		return OutcomeWin
	case own < opp:
		return OutcomeLoss
	default:
		return OutcomeDraw
	}
}

// extremes picks the widest winning and losing margins. Equal margins prefer
// more goals (scored for best, conceded for worst), then the earlier match.
func extremes(lines []MatchLine) (*MatchLine, *MatchLine) {
	var best, worst *MatchLine
	for i := range lines {
		line := &lines[i]
		if line.OwnScore == nil || line.OpponentScore == nil {
			continue
		}
		if best == nil || line.margin() > best.margin() ||
			(line.margin() == best.margin() && *line.OwnScore > *best.OwnScore) {
			best = line
		}
		if worst == nil || line.margin() < worst.margin() ||
			(line.margin() == worst.margin() && *line.OpponentScore > *worst.OpponentScore) {
			worst = line
		}
	}
	if best == nil {
		return nil, nil
	}
	b, w := *best, *worst
	return &b, &w
}
