package matchsession

import (
	"sort"

	"github.com/riskibarqy/matchday-relay/internal/domain/matchevent"
	"github.com/riskibarqy/matchday-relay/internal/domain/playerminutes"
)

type PlayerStats struct {
	PlayerID string `json:"player_id"`
	Goals    int    `json:"goals"`
	Assists  int    `json:"assists"`
	Yellows  int    `json:"yellows"`
	Reds     int    `json:"reds"`
}

type CardEntry struct {
	PlayerID string
	Minute   int
	Severity matchevent.Severity
}

type Scoreboard struct {
	MatchID           string        `json:"match_id"`
	ClubScore         int           `json:"club_score"`
	OppositionScore   int           `json:"opposition_score"`
	OppositionYellows int           `json:"opposition_yellows"`
	OppositionReds    int           `json:"opposition_reds"`
	Players           []PlayerStats `json:"players"`
}

// Session is the live state of one match: scoreboard, card history, minutes
// tracker and the keys of events already applied. Like the tracker it is
// owned by a single goroutine.
type Session struct {
	matchID         string
	clubScore       int
	oppositionScore int
	oppYellows      int
	oppReds         int
	players         map[string]*PlayerStats
	cards           []CardEntry
	applied         map[string]struct{}
	tracker         *playerminutes.Tracker
}

func New(matchID string, minutes playerminutes.Config) *Session {
	return &Session{
		matchID: matchID,
		players: make(map[string]*PlayerStats),
		applied: make(map[string]struct{}),
		tracker: playerminutes.NewTracker(minutes),
	}
}

func (s *Session) MatchID() string {
	return s.matchID
}

func (s *Session) Tracker() *playerminutes.Tracker {
	return s.tracker
}

// FirstYellowMinute scans the card history in arrival order.
func (s *Session) FirstYellowMinute(playerID string) (int, bool) {
	for _, card := range s.cards {
		if card.PlayerID == playerID && card.Severity == matchevent.SeverityYellow {
			return card.Minute, true
		}
	}
	return 0, false
}

func (s *Session) WasApplied(key string) bool {
	_, ok := s.applied[key]
	return ok
}

// Apply records the stat side effects of an event once per key. It reports
// false when the key was already applied.
func (s *Session) Apply(key string, event matchevent.MatchEvent) bool {
	if key != "" {
		if _, ok := s.applied[key]; ok {
			return false
		}
		s.applied[key] = struct{}{}
	}

	switch event.Kind {
	case matchevent.KindTeamGoal:
		s.clubScore++
		s.player(event.Subject).Goals++
		if event.Detail.Assist != "" {
			s.player(event.Detail.Assist).Assists++
		}
	case matchevent.KindOppositionGoal:
		s.oppositionScore++
	case matchevent.KindOppositionCard:
		if event.Detail.Severity == matchevent.SeverityRed {
			s.oppReds++
		} else {
			s.oppYellows++
		}
	case matchevent.KindTeamCard:
		stats := s.player(event.Subject)
		if event.Detail.Severity == matchevent.SeverityRed {
			stats.Reds++
		} else {
			stats.Yellows++
		}
		s.cards = append(s.cards, CardEntry{PlayerID: event.Subject, Minute: event.Minute, Severity: event.Detail.Severity})
	case matchevent.KindSecondYellowRed:
		s.player(event.Subject).Reds++
		s.cards = append(s.cards, CardEntry{PlayerID: event.Subject, Minute: event.Minute, Severity: matchevent.SeverityRed})
	}
	return true
}

func (s *Session) Scoreboard() Scoreboard {
	players := make([]PlayerStats, 0, len(s.players))
	for _, p := range s.players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool {
		return players[i].PlayerID < players[j].PlayerID
	})

	return Scoreboard{
		MatchID:           s.matchID,
		ClubScore:         s.clubScore,
		OppositionScore:   s.oppositionScore,
		OppositionYellows: s.oppYellows,
		OppositionReds:    s.oppReds,
		Players:           players,
	}
}

func (s *Session) player(id string) *PlayerStats {
	stats, ok := s.players[id]
	if !ok {
		stats = &PlayerStats{PlayerID: id}
		s.players[id] = stats
	}
	return stats
}
