package out

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stride/internal/modules/exercise/domain"
	exerciseout "stride/internal/modules/exercise/port/out"
	apperrors "stride/internal/platform/errors"

	_ "modernc.org/sqlite"
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

// OpenDB opens (creating if needed) the shared metrics database. All
// sqlite stores of this module share one handle so writes from the
// metric streams serialize on a single connection pool.
func OpenDB(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureSchema(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS exercise (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  kind TEXT NOT NULL,
  start_time TEXT,
  end_time TEXT,
  duration_ms INTEGER
);
CREATE TABLE IF NOT EXISTS distance (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exercise_id TEXT NOT NULL REFERENCES exercise(id) ON DELETE CASCADE,
  meters REAL NOT NULL,
  instant TEXT NOT NULL,
  exercise_duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS speed (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exercise_id TEXT NOT NULL REFERENCES exercise(id) ON DELETE CASCADE,
  meters_per_second REAL NOT NULL,
  instant TEXT NOT NULL,
  exercise_duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS heart_rate (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  exercise_id TEXT NOT NULL REFERENCES exercise(id) ON DELETE CASCADE,
  bpm INTEGER NOT NULL,
  accuracy TEXT NOT NULL,
  source TEXT NOT NULL,
  instant TEXT NOT NULL,
  exercise_duration_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_distance_exercise ON distance(exercise_id);
CREATE INDEX IF NOT EXISTS idx_speed_exercise ON speed(exercise_id);
CREATE INDEX IF NOT EXISTS idx_heart_rate_exercise ON heart_rate(exercise_id);
`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create metric tables: %w", err)
	}
	return nil
}

type SQLiteExerciseStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteExerciseStore(db *sql.DB, now func() time.Time) exerciseout.ExerciseStore {
	return &SQLiteExerciseStore{db: db, now: now}
}

func (s *SQLiteExerciseStore) Create(ctx context.Context, exerciseID string, kind domain.Kind) error {
	title := titleFor(kind, s.now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exercise (id, title, kind) VALUES (?, ?, ?)`,
		exerciseID, title, string(kind))
	if err != nil {
		return fmt.Errorf("insert exercise: %w", err)
	}
	return nil
}

func titleFor(kind domain.Kind, now time.Time) string {
	label := "Run"
	if kind == domain.KindIndoorRun {
		label = "Indoor run"
	}
	return fmt.Sprintf("%s %s", label, now.Format("Mon 15:04"))
}

func (s *SQLiteExerciseStore) UpdateStart(ctx context.Context, exerciseID string, startTime *time.Time, duration *time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE exercise SET start_time = ?, duration_ms = ? WHERE id = ?`,
		nullTime(startTime), nullMillis(duration), exerciseID)
	if err != nil {
		return fmt.Errorf("update exercise start: %w", err)
	}
	return nil
}

func (s *SQLiteExerciseStore) UpdateEnd(ctx context.Context, exerciseID string, endTime *time.Time, duration *time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE exercise SET end_time = ?, duration_ms = ? WHERE id = ?`,
		nullTime(endTime), nullMillis(duration), exerciseID)
	if err != nil {
		return fmt.Errorf("update exercise end: %w", err)
	}
	return nil
}

func (s *SQLiteExerciseStore) Get(ctx context.Context, exerciseID string) (domain.Exercise, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, kind, start_time, end_time, duration_ms FROM exercise WHERE id = ?`,
		exerciseID)
	exercise, err := scanExercise(row)
	if err == sql.ErrNoRows {
		return domain.Exercise{}, apperrors.ErrExerciseNotFound
	}
	if err != nil {
		return domain.Exercise{}, fmt.Errorf("get exercise: %w", err)
	}
	return exercise, nil
}

func (s *SQLiteExerciseStore) List(ctx context.Context) ([]domain.Exercise, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, kind, start_time, end_time, duration_ms FROM exercise ORDER BY start_time DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var exercises []domain.Exercise
	for rows.Next() {
		exercise, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		exercises = append(exercises, exercise)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (domain.Exercise, error) {
	var (
		exercise   domain.Exercise
		kind       string
		start, end sql.NullString
		durationMS sql.NullInt64
	)
	if err := row.Scan(&exercise.ID, &exercise.Title, &kind, &start, &end, &durationMS); err != nil {
		return domain.Exercise{}, err
	}
	exercise.Kind = domain.Kind(kind)
	var err error
	if exercise.StartTime, err = parseNullTime(start); err != nil {
		return domain.Exercise{}, err
	}
	if exercise.EndTime, err = parseNullTime(end); err != nil {
		return domain.Exercise{}, err
	}
	if durationMS.Valid {
		d := time.Duration(durationMS.Int64) * time.Millisecond
		exercise.Duration = &d
	}
	return exercise, nil
}

type SQLiteDistanceStore struct {
	db *sql.DB
}

func NewSQLiteDistanceStore(db *sql.DB) exerciseout.DistanceStore {
	return &SQLiteDistanceStore{db: db}
}

func (s *SQLiteDistanceStore) Insert(ctx context.Context, exerciseID string, d domain.Distance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO distance (exercise_id, meters, instant, exercise_duration_ms) VALUES (?, ?, ?, ?)`,
		exerciseID, d.Total, d.Instant.UTC().Format(timeFormat), d.ExerciseDuration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert distance: %w", err)
	}
	return nil
}

func (s *SQLiteDistanceStore) ListForExercise(ctx context.Context, exerciseID string) ([]domain.Distance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT meters, instant, exercise_duration_ms FROM distance WHERE exercise_id = ? ORDER BY exercise_duration_ms`,
		exerciseID)
	if err != nil {
		return nil, fmt.Errorf("list distances: %w", err)
	}
	defer rows.Close()

	var distances []domain.Distance
	for rows.Next() {
		var (
			d          domain.Distance
			instant    string
			durationMS int64
		)
		if err := rows.Scan(&d.Total, &instant, &durationMS); err != nil {
			return nil, fmt.Errorf("scan distance: %w", err)
		}
		if d.Instant, err = time.Parse(timeFormat, instant); err != nil {
			return nil, fmt.Errorf("parse distance instant: %w", err)
		}
		d.ExerciseDuration = time.Duration(durationMS) * time.Millisecond
		distances = append(distances, d)
	}
	return distances, rows.Err()
}

type SQLiteSpeedStore struct {
	db *sql.DB
}

func NewSQLiteSpeedStore(db *sql.DB) exerciseout.SpeedStore {
	return &SQLiteSpeedStore{db: db}
}

func (s *SQLiteSpeedStore) Insert(ctx context.Context, exerciseID string, sp domain.Speed) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO speed (exercise_id, meters_per_second, instant, exercise_duration_ms) VALUES (?, ?, ?, ?)`,
		exerciseID, sp.MetersPerSecond, sp.Instant.UTC().Format(timeFormat), sp.ExerciseDuration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert speed: %w", err)
	}
	return nil
}

func (s *SQLiteSpeedStore) ListForExercise(ctx context.Context, exerciseID string) ([]domain.Speed, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT meters_per_second, instant, exercise_duration_ms FROM speed WHERE exercise_id = ? ORDER BY exercise_duration_ms`,
		exerciseID)
	if err != nil {
		return nil, fmt.Errorf("list speeds: %w", err)
	}
	defer rows.Close()

	var speeds []domain.Speed
	for rows.Next() {
		var (
			sp         domain.Speed
			instant    string
			durationMS int64
		)
		if err := rows.Scan(&sp.MetersPerSecond, &instant, &durationMS); err != nil {
			return nil, fmt.Errorf("scan speed: %w", err)
		}
		if sp.Instant, err = time.Parse(timeFormat, instant); err != nil {
			return nil, fmt.Errorf("parse speed instant: %w", err)
		}
		sp.ExerciseDuration = time.Duration(durationMS) * time.Millisecond
		speeds = append(speeds, sp)
	}
	return speeds, rows.Err()
}

type SQLiteHeartRateStore struct {
	db *sql.DB
}

func NewSQLiteHeartRateStore(db *sql.DB) exerciseout.HeartRateStore {
	return &SQLiteHeartRateStore{db: db}
}

func (s *SQLiteHeartRateStore) Insert(ctx context.Context, exerciseID string, hr domain.HeartRate) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO heart_rate (exercise_id, bpm, accuracy, source, instant, exercise_duration_ms) VALUES (?, ?, ?, ?, ?, ?)`,
		exerciseID, hr.BPM, string(hr.Accuracy), hr.Source.String(),
		hr.Instant.UTC().Format(timeFormat), hr.ExerciseDuration.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert heart rate: %w", err)
	}
	return nil
}

func (s *SQLiteHeartRateStore) ListForExercise(ctx context.Context, exerciseID string) ([]domain.HeartRate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bpm, accuracy, source, instant, exercise_duration_ms FROM heart_rate WHERE exercise_id = ? ORDER BY exercise_duration_ms`,
		exerciseID)
	if err != nil {
		return nil, fmt.Errorf("list heart rates: %w", err)
	}
	defer rows.Close()

	var heartRates []domain.HeartRate
	for rows.Next() {
		var (
			hr         domain.HeartRate
			accuracy   string
			source     string
			instant    string
			durationMS int64
		)
		if err := rows.Scan(&hr.BPM, &accuracy, &source, &instant, &durationMS); err != nil {
			return nil, fmt.Errorf("scan heart rate: %w", err)
		}
		hr.Accuracy = domain.Accuracy(accuracy)
		hr.Source = domain.ParseSource(source)
		if hr.Instant, err = time.Parse(timeFormat, instant); err != nil {
			return nil, fmt.Errorf("parse heart rate instant: %w", err)
		}
		hr.ExerciseDuration = time.Duration(durationMS) * time.Millisecond
		heartRates = append(heartRates, hr)
	}
	return heartRates, rows.Err()
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
