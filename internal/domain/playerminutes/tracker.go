package playerminutes

import (
	crerr "github.com/cockroachdb/errors"
)

var ErrTrackerInconsistency = crerr.New("tracker inconsistency")

type State string

const (
	StateNotStarted State = "not_started"
	StateFirstHalf  State = "first_half"
	StateHalfTime   State = "half_time"
	StateSecondHalf State = "second_half"
	StateFullTime   State = "full_time"
	StatePostponed  State = "postponed"
)

type Config struct {
	MatchLength int
	HalfLength  int
}

func DefaultConfig() Config {
	return Config{MatchLength: 90, HalfLength: 45}
}

// PlayerMinutes is one player's bookkeeping. EnteredAtMinute is only
// meaningful while OnPitch.
type PlayerMinutes struct {
	PlayerID           string `json:"player_id"`
	OnPitch            bool   `json:"on_pitch"`
	EnteredAtMinute    int    `json:"entered_at_minute"`
	AccumulatedMinutes int    `json:"accumulated_minutes"`
}

type Snapshot struct {
	State   State           `json:"state"`
	Frozen  bool            `json:"frozen"`
	Players []PlayerMinutes `json:"players"`
}

func (s Snapshot) TotalMinutes() int {
	total := 0
	for _, p := range s.Players {
		total += p.AccumulatedMinutes
	}
	return total
}

// Tracker is the per-match minutes state machine. It has no locking; a
// single owner drives it.
type Tracker struct {
	cfg     Config
	state   State
	players map[string]*PlayerMinutes
	order   []string
}

func NewTracker(cfg Config) *Tracker {
	defaults := DefaultConfig()
	if cfg.MatchLength <= 0 {
		cfg.MatchLength = defaults.MatchLength
	}
	if cfg.HalfLength <= 0 || cfg.HalfLength >= cfg.MatchLength {
		cfg.HalfLength = cfg.MatchLength / 2
	}
	return &Tracker{
		cfg:     cfg,
		state:   StateNotStarted,
		players: make(map[string]*PlayerMinutes),
	}
}

func (t *Tracker) State() State {
	return t.state
}

func (t *Tracker) Frozen() bool {
	return t.state == StateFullTime || t.state == StatePostponed
}

func (t *Tracker) Kickoff(starters []string) error {
	if t.state != StateNotStarted {
		return t.invalidTransition("kickoff")
	}
	for _, id := range starters {
		if id == "" {
			continue
		}
		if _, ok := t.players[id]; ok {
			continue
		}
		t.insert(id, 0)
	}
	t.state = StateFirstHalf
	return nil
}

// Substitute closes the outgoing player's stint and opens the incoming one.
// The minute is clamped into the current period so stoppage-time reports
// never produce minutes beyond the configured lengths.
func (t *Tracker) Substitute(minute int, off, on string) error {
	switch t.state {
	case StateFirstHalf, StateHalfTime, StateSecondHalf:
	default:
		return crerr.Wrapf(ErrTrackerInconsistency, "substitution while %s", t.state)
	}

	out, ok := t.players[off]
	if !ok || !out.OnPitch {
		return crerr.Wrapf(ErrTrackerInconsistency, "player %q is not on the pitch", off)
	}
	if in, ok := t.players[on]; ok && in.OnPitch {
		return crerr.Wrapf(ErrTrackerInconsistency, "player %q is already on the pitch", on)
	}

	at := t.boundaryMinute(minute, out.EnteredAtMinute)
	out.AccumulatedMinutes += at - out.EnteredAtMinute
	out.OnPitch = false
	out.EnteredAtMinute = 0

	if in, ok := t.players[on]; ok {
		in.OnPitch = true
		in.EnteredAtMinute = at
		return nil
	}
	t.insert(on, at)
	return nil
}

func (t *Tracker) HalfTime() error {
	if t.state != StateFirstHalf {
		return t.invalidTransition("half time")
	}
	t.accrueOnPitch(t.cfg.HalfLength)
	t.state = StateHalfTime
	return nil
}

func (t *Tracker) SecondHalf() error {
	if t.state != StateHalfTime {
		return t.invalidTransition("second half")
	}
	t.state = StateSecondHalf
	return nil
}

func (t *Tracker) FullTime() error {
	if t.state != StateSecondHalf {
		return t.invalidTransition("full time")
	}
	t.accrueOnPitch(t.cfg.MatchLength)
	t.state = StateFullTime
	return nil
}

// Postpone freezes the session without accruing further minutes.
func (t *Tracker) Postpone() error {
	if t.Frozen() {
		return t.invalidTransition("postpone")
	}
	t.state = StatePostponed
	return nil
}

// Snapshot returns a copy in order of first appearance.
func (t *Tracker) Snapshot() Snapshot {
	players := make([]PlayerMinutes, 0, len(t.order))
	for _, id := range t.order {
		players = append(players, *t.players[id])
	}
	return Snapshot{
		State:   t.state,
		Frozen:  t.Frozen(),
		Players: players,
	}
}

func (t *Tracker) insert(id string, enteredAt int) {
	t.players[id] = &PlayerMinutes{
		PlayerID:        id,
		OnPitch:         true,
		EnteredAtMinute: enteredAt,
	}
	t.order = append(t.order, id)
}

func (t *Tracker) accrueOnPitch(upTo int) {
	for _, id := range t.order {
		p := t.players[id]
		if !p.OnPitch {
			continue
		}
		if upTo > p.EnteredAtMinute {
			p.AccumulatedMinutes += upTo - p.EnteredAtMinute
		}
		p.EnteredAtMinute = upTo
	}
}

func (t *Tracker) boundaryMinute(minute, enteredAt int) int {
	periodEnd := t.cfg.MatchLength
	switch t.state {
	case StateFirstHalf:
		periodEnd = t.cfg.HalfLength
	case StateHalfTime:
		return t.cfg.HalfLength
	}
	if minute > periodEnd {
		minute = periodEnd
	}
	if minute < enteredAt {
		minute = enteredAt
	}
	return minute
}

func (t *Tracker) invalidTransition(action string) error {
	return crerr.Wrapf(ErrTrackerInconsistency, "%s not allowed while %s", action, t.state)
}
