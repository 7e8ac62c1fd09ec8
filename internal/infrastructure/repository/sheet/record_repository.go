package sheet

import (
	"context"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchday-relay/internal/domain/record"
	"github.com/riskibarqy/matchday-relay/internal/platform/logging"
	"github.com/xuri/excelize/v2"
)

const (
	FixturesSheet = "Fixtures"
	ResultsSheet  = "Results"
	MinutesSheet  = "Minutes"
)

var recordHeader = []string{"id", "date", "club", "opponent", "competition", "venue", "own_score", "opponent_score", "status", "posted"}

var minutesHeader = []string{"match_id", "player_id", "minutes", "state", "recorded_at"}

// columnAliases maps accepted header spellings onto canonical column names.
var columnAliases = map[string]string{
	"match_id":      "id",
	"match_date":    "date",
	"kickoff":       "date",
	"team":          "club",
	"opposition":    "opponent",
	"goals_for":     "own_score",
	"goals_against": "opponent_score",
	"score_for":     "own_score",
	"score_against": "opponent_score",
}

// RecordRepository keeps fixtures, results and minutes reports in one
// workbook. A missing file or sheet reads as empty.
type RecordRepository struct {
	path   string
	mu     sync.Mutex
	logger *logging.Logger
}

func NewRecordRepository(path string, logger *logging.Logger) *RecordRepository {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecordRepository{path: path, logger: logger.Named("sheet-store")}
}

func sheetFor(kind record.Kind) (string, error) {
	switch kind {
	case record.KindFixtures:
		return FixturesSheet, nil
	case record.KindResults:
		return ResultsSheet, nil
	default:
		return "", crerr.Newf("unknown record kind %q", kind)
	}
}

func (r *RecordRepository) ListRecords(ctx context.Context, kind record.Kind, filter record.Filter) ([]record.Record, error) {
	sheet, err := sheetFor(kind)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open(false)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return []record.Record{}, nil
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := readSheet(f, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []record.Record{}, nil
	}

	cols := headerIndex(rows[0], columnAliases)
	out := make([]record.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec, ok, err := parseRecordRow(kind, cols, row)
		if err != nil {
			r.logger.WarnContext(ctx, "skipping unreadable row", "sheet", sheet, "row", i+2, "error", err)
			continue
		}
		if ok && filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

func (r *RecordRepository) MarkPosted(ctx context.Context, ref record.Ref) (bool, error) {
	return r.updateCell(ctx, ref, "posted", func(current string) (string, bool) {
		if parseBool(current) {
			return current, false
		}
		return "TRUE", true
	})
}

func (r *RecordRepository) UpdateStatus(ctx context.Context, ref record.Ref, status record.Status) (bool, error) {
	found := false
	_, err := r.updateCell(ctx, ref, "status", func(string) (string, bool) {
		found = true
		return string(status), true
	})
	return found, err
}

// updateCell rewrites one column of the row holding ref.ID, adding the column
// to the header when it is missing.
func (r *RecordRepository) updateCell(ctx context.Context, ref record.Ref, column string, fn func(current string) (string, bool)) (bool, error) {
	sheet, err := sheetFor(ref.Kind)
	if err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open(false)
	if err != nil || f == nil {
		return false, err
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := readSheet(f, sheet)
	if err != nil || len(rows) == 0 {
		return false, err
	}

	cols := headerIndex(rows[0], columnAliases)
	idCol, ok := cols["id"]
	if !ok {
		return false, crerr.Newf("sheet %s has no id column", sheet)
	}
	target, ok := cols[column]
	if !ok {
		target = len(rows[0])
		cell, _ := excelize.CoordinatesToCellName(target+1, 1)
		if err := f.SetCellValue(sheet, cell, column); err != nil {
			return false, crerr.Wrapf(err, "add %s column", column)
		}
	}

	for i, row := range rows[1:] {
		if cellAt(row, idCol) != ref.ID {
			continue
		}
		next, changed := fn(cellAt(row, target))
		if !changed {
			return false, nil
		}
		cell, _ := excelize.CoordinatesToCellName(target+1, i+2)
		if err := f.SetCellValue(sheet, cell, next); err != nil {
			return false, crerr.Wrapf(err, "set %s for %s", column, ref.ID)
		}
		if err := f.Save(); err != nil {
			return false, crerr.Wrapf(err, "save workbook %s", r.path)
		}
		r.logger.DebugContext(ctx, "sheet row updated", "sheet", sheet, "id", ref.ID, "column", column)
		return true, nil
	}
	return false, nil
}

// SaveMatchMinutes replaces the rows of the match in the Minutes sheet,
// creating the workbook or sheet when needed.
func (r *RecordRepository) SaveMatchMinutes(ctx context.Context, report record.MinutesReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	rows, err := readSheet(f, MinutesSheet)
	if err != nil {
		return err
	}
	kept := [][]any{toRow(minutesHeader)}
	if len(rows) > 0 {
		cols := headerIndex(rows[0], nil)
		matchCol, ok := cols["match_id"]
		if !ok {
			matchCol = 0
		}
		for _, row := range rows[1:] {
			if cellAt(row, matchCol) != report.MatchID {
				kept = append(kept, toRow(row))
			}
		}
	}

	recordedAt := report.RecordedAt.UTC().Format(time.RFC3339)
	for _, p := range report.Players {
		kept = append(kept, []any{report.MatchID, p.PlayerID, p.Minutes, report.State, recordedAt})
	}

	if err := replaceSheet(f, MinutesSheet, kept); err != nil {
		return err
	}
	if err := f.SaveAs(r.path); err != nil {
		return crerr.Wrapf(err, "save workbook %s", r.path)
	}
	r.logger.InfoContext(ctx, "match minutes saved", "match_id", report.MatchID, "players", len(report.Players))
	return nil
}

// open returns nil without error when the workbook is absent and create is
// false.
func (r *RecordRepository) open(create bool) (*excelize.File, error) {
	f, err := excelize.OpenFile(r.path)
	if err == nil {
		return f, nil
	}
	if !crerr.Is(err, fs.ErrNotExist) {
		return nil, crerr.Wrapf(err, "open workbook %s", r.path)
	}
	if !create {
		return nil, nil
	}
	return excelize.NewFile(), nil
}

// replaceSheet overwrites sheet with rows, creating it when missing.
func replaceSheet(f *excelize.File, sheet string, rows [][]any) error {
	existing, err := readSheet(f, sheet)
	if err != nil {
		return err
	}
	if existing == nil {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			if _, err := f.NewSheet(sheet); err != nil {
				return crerr.Wrapf(err, "create sheet %s", sheet)
			}
		}
	}
	for i := len(existing); i > 0; i-- {
		if err := f.RemoveRow(sheet, i); err != nil {
			return crerr.Wrapf(err, "clear sheet %s", sheet)
		}
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return crerr.Wrapf(err, "write %s row %d", sheet, i+1)
		}
	}

	// A fresh workbook carries a default Sheet1 that nothing reads.
	if sheet != "Sheet1" && len(f.GetSheetList()) > 1 {
		if idx, _ := f.GetSheetIndex("Sheet1"); idx >= 0 {
			if rows, _ := f.GetRows("Sheet1"); len(rows) == 0 {
				_ = f.DeleteSheet("Sheet1")
			}
		}
	}
	return nil
}

func readSheet(f *excelize.File, sheet string) ([][]string, error) {
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, crerr.Wrapf(err, "read sheet %s", sheet)
	}
	return rows, nil
}

func headerIndex(header []string, aliases map[string]string) map[string]int {
	out := make(map[string]int, len(header))
	for i, raw := range header {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_")
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		if _, dup := out[name]; !dup && name != "" {
			out[name] = i
		}
	}
	return out
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseRecordRow(kind record.Kind, cols map[string]int, row []string) (record.Record, bool, error) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok {
			return ""
		}
		return cellAt(row, idx)
	}

	id := get("id")
	if id == "" {
		return record.Record{}, false, nil
	}
	date, err := parseDate(get("date"))
	if err != nil {
		return record.Record{}, false, crerr.Wrapf(err, "record %s", id)
	}
	own, err := parseScore(get("own_score"))
	if err != nil {
		return record.Record{}, false, crerr.Wrapf(err, "record %s own_score", id)
	}
	opp, err := parseScore(get("opponent_score"))
	if err != nil {
		return record.Record{}, false, crerr.Wrapf(err, "record %s opponent_score", id)
	}

	return record.Record{
		ID:            id,
		Kind:          kind,
		Date:          date,
		Club:          get("club"),
		Opponent:      get("opponent"),
		Competition:   get("competition"),
		Venue:         get("venue"),
		OwnScore:      own,
		OpponentScore: opp,
		Status:        record.NormalizeStatus(get("status")),
		Posted:        parseBool(get("posted")),
	}, true, nil
}

var dateLayouts = []string{time.DateOnly, time.RFC3339, "2006-01-02 15:04", "02/01/2006", "2006/01/02", "01-02-06"}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, crerr.New("date is empty")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, crerr.Newf("unrecognised date %q", raw)
}

func parseScore(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "-" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	if v < 0 {
		return nil, crerr.Newf("negative score %d", v)
	}
	return &v, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "t", "yes", "y", "x", "posted":
		return true
	default:
		return false
	}
}

// WriteRecords creates or replaces the sheet for kind with rows in header
// order. Used by seeding and tests.
func (r *RecordRepository) WriteRecords(kind record.Kind, recs []record.Record) error {
	sheet, err := sheetFor(kind)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.open(true)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	rows := make([][]any, 0, len(recs)+1)
	rows = append(rows, toRow(recordHeader))
	for _, rec := range recs {
		rows = append(rows, []any{
			rec.ID, rec.Date.UTC().Format(time.DateOnly), rec.Club, rec.Opponent,
			rec.Competition, rec.Venue, scoreCell(rec.OwnScore), scoreCell(rec.OpponentScore),
			string(rec.Status), strings.ToUpper(strconv.FormatBool(rec.Posted)),
		})
	}
	if err := replaceSheet(f, sheet, rows); err != nil {
		return err
	}
	if err := f.SaveAs(r.path); err != nil {
		return crerr.Wrapf(err, "save workbook %s", r.path)
	}
	return nil
}

func toRow(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func scoreCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
