package out

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"stride/internal/modules/export/domain"
	exportout "stride/internal/modules/export/port/out"
	apperrors "stride/internal/platform/errors"
	"stride/internal/platform/tx"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// SQLiteSessionStore reads and writes the exercise tables for export
// and import. It shares the database handle with the exercise module's
// stores; sessions written here look exactly like recorded ones.
type SQLiteSessionStore struct {
	db *sql.DB
}

func NewSQLiteSessionStore(db *sql.DB) *SQLiteSessionStore {
	return &SQLiteSessionStore{db: db}
}

var (
	_ exportout.SessionReader = (*SQLiteSessionStore)(nil)
	_ exportout.SessionWriter = (*SQLiteSessionStore)(nil)
)

func (s *SQLiteSessionStore) Session(ctx context.Context, exerciseID string) (domain.Session, error) {
	row := tx.From(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, title, kind, start_time, end_time, duration_ms FROM exercise WHERE id = ?`,
		exerciseID)
	session, err := scanSession(row)
	if err == sql.ErrNoRows {
		return domain.Session{}, apperrors.ErrExerciseNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

func (s *SQLiteSessionStore) Sessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := tx.From(ctx, s.db).QueryContext(ctx,
		`SELECT id, title, kind, start_time, end_time, duration_ms FROM exercise ORDER BY start_time DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (s *SQLiteSessionStore) Distances(ctx context.Context, exerciseID string) ([]domain.DistancePoint, error) {
	rows, err := tx.From(ctx, s.db).QueryContext(ctx,
		`SELECT meters, exercise_duration_ms FROM distance WHERE exercise_id = ? ORDER BY exercise_duration_ms`,
		exerciseID)
	if err != nil {
		return nil, fmt.Errorf("list distances: %w", err)
	}
	defer rows.Close()

	var points []domain.DistancePoint
	for rows.Next() {
		var (
			p          domain.DistancePoint
			durationMS int64
		)
		if err := rows.Scan(&p.Meters, &durationMS); err != nil {
			return nil, fmt.Errorf("scan distance: %w", err)
		}
		p.Offset = time.Duration(durationMS) * time.Millisecond
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteSessionStore) Speeds(ctx context.Context, exerciseID string) ([]domain.SpeedPoint, error) {
	rows, err := tx.From(ctx, s.db).QueryContext(ctx,
		`SELECT meters_per_second, exercise_duration_ms FROM speed WHERE exercise_id = ? ORDER BY exercise_duration_ms`,
		exerciseID)
	if err != nil {
		return nil, fmt.Errorf("list speeds: %w", err)
	}
	defer rows.Close()

	var points []domain.SpeedPoint
	for rows.Next() {
		var (
			p          domain.SpeedPoint
			durationMS int64
		)
		if err := rows.Scan(&p.MetersPerSecond, &durationMS); err != nil {
			return nil, fmt.Errorf("scan speed: %w", err)
		}
		p.Offset = time.Duration(durationMS) * time.Millisecond
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteSessionStore) HeartRates(ctx context.Context, exerciseID string) ([]domain.HeartRatePoint, error) {
	rows, err := tx.From(ctx, s.db).QueryContext(ctx,
		`SELECT bpm, source, exercise_duration_ms FROM heart_rate WHERE exercise_id = ? ORDER BY exercise_duration_ms`,
		exerciseID)
	if err != nil {
		return nil, fmt.Errorf("list heart rates: %w", err)
	}
	defer rows.Close()

	var points []domain.HeartRatePoint
	for rows.Next() {
		var (
			p          domain.HeartRatePoint
			durationMS int64
		)
		if err := rows.Scan(&p.BPM, &p.Source, &durationMS); err != nil {
			return nil, fmt.Errorf("scan heart rate: %w", err)
		}
		p.Offset = time.Duration(durationMS) * time.Millisecond
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteSessionStore) InsertSession(ctx context.Context, session domain.Session) error {
	_, err := tx.From(ctx, s.db).ExecContext(ctx,
		`INSERT INTO exercise (id, title, kind, start_time, end_time, duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.Title, session.Kind,
		nullTime(session.StartTime), nullTime(session.EndTime), nullMillis(session.Duration))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// InsertRecord appends one row per channel the record carries. Imported
// heart-rate rows have no live accuracy or provenance, both persist in
// their unknown forms.
func (s *SQLiteSessionStore) InsertRecord(ctx context.Context, exerciseID string, r domain.ActivityRecord) error {
	instant := r.Instant.UTC().Format(timeFormat)
	durationMS := r.Offset.Milliseconds()
	if r.DistanceMeters != nil {
		if _, err := tx.From(ctx, s.db).ExecContext(ctx,
			`INSERT INTO distance (exercise_id, meters, instant, exercise_duration_ms) VALUES (?, ?, ?, ?)`,
			exerciseID, *r.DistanceMeters, instant, durationMS); err != nil {
			return fmt.Errorf("insert imported distance: %w", err)
		}
	}
	if r.MetersPerSecond != nil {
		if _, err := tx.From(ctx, s.db).ExecContext(ctx,
			`INSERT INTO speed (exercise_id, meters_per_second, instant, exercise_duration_ms) VALUES (?, ?, ?, ?)`,
			exerciseID, *r.MetersPerSecond, instant, durationMS); err != nil {
			return fmt.Errorf("insert imported speed: %w", err)
		}
	}
	if r.HRBPM != nil {
		if _, err := tx.From(ctx, s.db).ExecContext(ctx,
			`INSERT INTO heart_rate (exercise_id, bpm, accuracy, source, instant, exercise_duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
			exerciseID, *r.HRBPM, "unknown", "[UNKNOWN]", instant, durationMS); err != nil {
			return fmt.Errorf("insert imported heart rate: %w", err)
		}
	}
	return nil
}

func scanSession(row interface{ Scan(dest ...any) error }) (domain.Session, error) {
	var (
		session    domain.Session
		start, end sql.NullString
		durationMS sql.NullInt64
	)
	if err := row.Scan(&session.ID, &session.Title, &session.Kind, &start, &end, &durationMS); err != nil {
		return domain.Session{}, err
	}
	var err error
	if session.StartTime, err = parseNullTime(start); err != nil {
		return domain.Session{}, err
	}
	if session.EndTime, err = parseNullTime(end); err != nil {
		return domain.Session{}, err
	}
	if durationMS.Valid {
		d := time.Duration(durationMS.Int64) * time.Millisecond
		session.Duration = &d
	}
	return session, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

func nullMillis(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return d.Milliseconds()
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(timeFormat, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse stored time: %w", err)
	}
	return &t, nil
}
