package postgres

import (
	"database/sql"
	"time"

	"github.com/riskibarqy/matchday-relay/internal/domain/record"
)

type matchRecordTableModel struct {
	Kind          string        `db:"kind"`
	ID            string        `db:"id"`
	MatchDate     time.Time     `db:"match_date"`
	Club          string        `db:"club"`
	Opponent      string        `db:"opponent"`
	Competition   string        `db:"competition"`
	Venue         string        `db:"venue"`
	OwnScore      sql.NullInt64 `db:"own_score"`
	OpponentScore sql.NullInt64 `db:"opponent_score"`
	Status        string        `db:"status"`
	Posted        bool          `db:"posted"`
}

func (m matchRecordTableModel) toDomain() record.Record {
	return record.Record{
		ID:            m.ID,
		Kind:          record.Kind(m.Kind),
		Date:          m.MatchDate.UTC(),
		Club:          m.Club,
		Opponent:      m.Opponent,
		Competition:   m.Competition,
		Venue:         m.Venue,
		OwnScore:      intFromNull(m.OwnScore),
		OpponentScore: intFromNull(m.OpponentScore),
		Status:        record.NormalizeStatus(m.Status),
		Posted:        m.Posted,
	}
}

func matchRecordModelFromDomain(r record.Record) matchRecordTableModel {
	return matchRecordTableModel{
		Kind:          string(r.Kind),
		ID:            r.ID,
		MatchDate:     r.Date.UTC(),
		Club:          r.Club,
		Opponent:      r.Opponent,
		Competition:   r.Competition,
		Venue:         r.Venue,
		OwnScore:      optionalInt(r.OwnScore),
		OpponentScore: optionalInt(r.OpponentScore),
		Status:        string(r.Status),
		Posted:        r.Posted,
	}
}

type playerMinutesInsertModel struct {
	MatchID    string    `db:"match_id"`
	PlayerID   string    `db:"player_id"`
	Minutes    int       `db:"minutes"`
	State      string    `db:"state"`
	RecordedAt time.Time `db:"recorded_at"`
}
