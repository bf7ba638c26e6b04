package service_test

import (
	"context"
	"strconv"
	"sync"
	"time"

	"stride/internal/modules/exercise/domain"
	"stride/internal/modules/exercise/port/out"
	apperrors "stride/internal/platform/errors"
)

type fakeClock struct {
	now     time.Time
	elapsed time.Duration
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Elapsed() time.Duration  { return c.elapsed }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d); c.elapsed += d }

type fakeIDs struct {
	next int
}

func (g *fakeIDs) New() string {
	g.next++
	return "exercise-" + strconv.Itoa(g.next)
}

type fakeHandle struct {
	updates chan domain.Update
	closed  bool
}

func (h *fakeHandle) Updates() <-chan domain.Update { return h.updates }

func (h *fakeHandle) Close() error {
	h.closed = true
	close(h.updates)
	return nil
}

type fakeClient struct {
	mu       sync.Mutex
	handle   *fakeHandle
	info     domain.Info
	startErr error
	pauseErr error
	started  []domain.TrackingConfig
	paused   int
	resumed  int
	ended    int
}

func (c *fakeClient) StartExercise(_ context.Context, cfg domain.TrackingConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.started = append(c.started, cfg)
	return nil
}

func (c *fakeClient) PauseExercise(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pauseErr != nil {
		return c.pauseErr
	}
	c.paused++
	return nil
}

func (c *fakeClient) ResumeExercise(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumed++
	return nil
}

func (c *fakeClient) EndExercise(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended++
	return nil
}

func (c *fakeClient) CurrentExerciseInfo(context.Context) (domain.Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info, nil
}

func (c *fakeClient) RegisterCallback(context.Context) (out.CallbackHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handle = &fakeHandle{updates: make(chan domain.Update, 16)}
	return c.handle, nil
}

type exerciseRow struct {
	kind      domain.Kind
	startTime *time.Time
	endTime   *time.Time
	duration  *time.Duration
}

type fakeExerciseStore struct {
	mu   sync.Mutex
	rows map[string]*exerciseRow
}

func newFakeExerciseStore() *fakeExerciseStore {
	return &fakeExerciseStore{rows: make(map[string]*exerciseRow)}
}

func (s *fakeExerciseStore) Create(_ context.Context, exerciseID string, kind domain.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[exerciseID] = &exerciseRow{kind: kind}
	return nil
}

func (s *fakeExerciseStore) UpdateStart(_ context.Context, exerciseID string, startTime *time.Time, duration *time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[exerciseID]; ok {
		row.startTime = startTime
		row.duration = duration
	}
	return nil
}

func (s *fakeExerciseStore) UpdateEnd(_ context.Context, exerciseID string, endTime *time.Time, duration *time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[exerciseID]; ok {
		row.endTime = endTime
		row.duration = duration
	}
	return nil
}

func (s *fakeExerciseStore) Get(_ context.Context, exerciseID string) (domain.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[exerciseID]
	if !ok {
		return domain.Exercise{}, apperrors.ErrExerciseNotFound
	}
	return domain.Exercise{ID: exerciseID, Kind: row.kind, StartTime: row.startTime, EndTime: row.endTime, Duration: row.duration}, nil
}

func (s *fakeExerciseStore) List(context.Context) ([]domain.Exercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exercises := make([]domain.Exercise, 0, len(s.rows))
	for exerciseID, row := range s.rows {
		exercises = append(exercises, domain.Exercise{ID: exerciseID, Kind: row.kind, StartTime: row.startTime, EndTime: row.endTime, Duration: row.duration})
	}
	return exercises, nil
}

func (s *fakeExerciseStore) row(exerciseID string) exerciseRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[exerciseID]; ok {
		return *row
	}
	return exerciseRow{}
}

type fakeDistanceStore struct {
	mu   sync.Mutex
	rows map[string][]domain.Distance
}

func newFakeDistanceStore() *fakeDistanceStore {
	return &fakeDistanceStore{rows: make(map[string][]domain.Distance)}
}

func (s *fakeDistanceStore) Insert(_ context.Context, exerciseID string, d domain.Distance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[exerciseID] = append(s.rows[exerciseID], d)
	return nil
}

func (s *fakeDistanceStore) ListForExercise(_ context.Context, exerciseID string) ([]domain.Distance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Distance(nil), s.rows[exerciseID]...), nil
}

type fakeSpeedStore struct {
	mu   sync.Mutex
	rows map[string][]domain.Speed
}

func newFakeSpeedStore() *fakeSpeedStore {
	return &fakeSpeedStore{rows: make(map[string][]domain.Speed)}
}

func (s *fakeSpeedStore) Insert(_ context.Context, exerciseID string, sp domain.Speed) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[exerciseID] = append(s.rows[exerciseID], sp)
	return nil
}

func (s *fakeSpeedStore) ListForExercise(_ context.Context, exerciseID string) ([]domain.Speed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Speed(nil), s.rows[exerciseID]...), nil
}

type fakeHeartRateStore struct {
	mu   sync.Mutex
	rows map[string][]domain.HeartRate
}

func newFakeHeartRateStore() *fakeHeartRateStore {
	return &fakeHeartRateStore{rows: make(map[string][]domain.HeartRate)}
}

func (s *fakeHeartRateStore) Insert(_ context.Context, exerciseID string, hr domain.HeartRate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[exerciseID] = append(s.rows[exerciseID], hr)
	return nil
}

func (s *fakeHeartRateStore) ListForExercise(_ context.Context, exerciseID string) ([]domain.HeartRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.HeartRate(nil), s.rows[exerciseID]...), nil
}

type fakeCurrentStore struct {
	mu  sync.Mutex
	cur domain.CurrentExercise
}

func (s *fakeCurrentStore) Load(context.Context) (domain.CurrentExercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur, nil
}

func (s *fakeCurrentStore) Update(_ context.Context, fn func(domain.CurrentExercise) domain.CurrentExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cur = fn(s.cur)
	return nil
}

type fakeForeground struct {
	mu    sync.Mutex
	moves []bool
}

func (f *fakeForeground) MoveToForeground() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, true)
}

func (f *fakeForeground) RemoveFromForeground() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, false)
}
