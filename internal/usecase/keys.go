package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/domain/summary"
)

var keyUnsafeCharRegex = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

const (
	OperationLiveEvent      = "live_event"
	OperationPostFixtures   = "post_fixtures"
	OperationPostResults    = "post_results"
	OperationMonthlySummary = "monthly"
)

// LiveEventKey is match + minute + kind + subject, so an upstream redelivery of
// the same report maps to the same key.
func LiveEventKey(event matchevent.MatchEvent) string {
	return joinKey(
		"live",
		event.MatchID,
		strconv.Itoa(event.Minute),
		event.EventType(),
		event.IdentityKey(),
	)
}

// BatchKey follows {operation}_{scope}_{period}.
func BatchKey(operation, scope string, period summary.Period) string {
	return joinKey(operation, scope, period.Label())
}

func PostingOperation(kind record.Kind) string {
	if kind == record.KindFixtures {
		return OperationPostFixtures
	}
	return OperationPostResults
}

func MonthlyKey(kind record.Kind, club string, period summary.Period) string {
	return joinKey(OperationMonthlySummary, string(kind), club, period.Label())
}

func ChunkKey(base string, part int) string {
	return base + "_part" + strconv.Itoa(part)
}

func joinKey(segments ...string) string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		out = append(out, sanitizeKeySegment(s))
	}
	return strings.Join(out, "_")
}

func sanitizeKeySegment(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	return keyUnsafeCharRegex.ReplaceAllString(value, "-")
}
