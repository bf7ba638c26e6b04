package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"stride/internal/modules/exercise/domain"
	"stride/internal/modules/exercise/service"
)

type orchestratorFixture struct {
	*writerFixture
	orch       *service.Orchestrator
	client     *fakeClient
	foreground *fakeForeground
	cancel     context.CancelFunc
}

func newOrchestratorFixture(t *testing.T, opts service.Options) *orchestratorFixture {
	t.Helper()
	wf := newWriterFixture()
	f := &orchestratorFixture{
		writerFixture: wf,
		client:        &fakeClient{},
		foreground:    &fakeForeground{},
	}
	f.orch = service.NewOrchestrator(f.client, f.writer, f.foreground, f.clk, opts)
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	t.Cleanup(cancel)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.orch.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	f.waitForHandle(t)
	return f
}

func (f *orchestratorFixture) waitForHandle(t *testing.T) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		f.client.mu.Lock()
		registered := f.client.handle != nil
		f.client.mu.Unlock()
		if registered {
			return
		}
		select {
		case <-deadline:
			t.Fatal("callback never registered")
		case <-time.After(time.Millisecond):
		}
	}
}

func (f *orchestratorFixture) push(update domain.Update) {
	f.client.mu.Lock()
	handle := f.client.handle
	f.client.mu.Unlock()
	handle.updates <- update
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for value")
		panic("unreachable")
	}
}

func activeUpdate(clk *fakeClock, active time.Duration) domain.Update {
	start := clk.Now().Add(-active)
	return domain.Update{
		State:          domain.PlatformActive,
		UpdateDuration: clk.Elapsed(),
		StartTime:      &start,
		Checkpoint:     &domain.Checkpoint{Time: clk.Now(), ActiveDuration: active},
	}
}

func TestOrchestratorBootstrapPublishesState(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	state := recv(t, f.orch.States(context.Background()))
	if state.Status != domain.StatusNotStarted {
		t.Fatalf("bootstrap status = %q, want %q", state.Status, domain.StatusNotStarted)
	}
}

func TestOrchestratorStartInvokesPlatform(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	if _, err := f.orch.StartExercise(context.Background(), domain.KindOutdoorRun, true); err != nil {
		t.Fatalf("StartExercise: %v", err)
	}

	f.client.mu.Lock()
	started := append([]domain.TrackingConfig(nil), f.client.started...)
	f.client.mu.Unlock()
	if len(started) != 1 {
		t.Fatalf("started = %d calls, want 1", len(started))
	}
	if started[0].Exercise != domain.KindOutdoorRun || !started[0].GPSEnabled {
		t.Fatalf("config = %+v", started[0])
	}
	cur, _ := f.current.Load(context.Background())
	if cur.ExerciseID == "" {
		t.Fatal("no durable pointer after start")
	}
}

func TestOrchestratorStartRejectsUnknownKind(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	if _, err := f.orch.StartExercise(context.Background(), domain.Kind("swim"), false); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestOrchestratorCommandFailureResetsWhenNotOwned(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})
	f.client.mu.Lock()
	f.client.pauseErr = errors.New("platform rejected pause")
	f.client.info = domain.Info{Tracked: domain.TrackedNone}
	f.client.mu.Unlock()

	errCh := f.orch.Errors(context.Background())
	states := f.orch.States(context.Background())
	recv(t, states) // bootstrap state

	f.orch.PauseExercise(context.Background())

	svcErr := recv(t, errCh)
	if svcErr.Err == nil {
		t.Fatalf("error event = %+v, want wrapped error", svcErr)
	}
	state := recv(t, states)
	if state.Status != domain.StatusNotStarted {
		t.Fatalf("status after forced reset = %q", state.Status)
	}
}

func TestOrchestratorCommandFailureKeepsOwnedSession(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})
	f.client.mu.Lock()
	f.client.pauseErr = errors.New("transient")
	f.client.info = domain.Info{Tracked: domain.TrackedOwned}
	f.client.mu.Unlock()

	errCh := f.orch.Errors(context.Background())
	states := f.orch.States(context.Background())
	recv(t, states) // bootstrap state

	f.orch.PauseExercise(context.Background())
	recv(t, errCh)

	select {
	case state := <-states:
		t.Fatalf("unexpected reset to %q", state.Status)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOrchestratorUpdateDerivesMetrics(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{NativePace: true})

	states := f.orch.States(context.Background())
	recv(t, states) // bootstrap state
	heartRates := f.orch.HeartRates(context.Background())
	speeds := f.orch.Speeds(context.Background())
	paces := f.orch.CurrentPaces(context.Background())
	distances := f.orch.Distances(context.Background())
	calories := f.orch.Calories(context.Background())

	update := activeUpdate(f.clk, 5*time.Minute)
	update.HeartRateSamples = []domain.SamplePoint{{
		Kind:         domain.KindHeartRateBPM,
		Value:        148.2,
		BootOffset:   f.clk.Elapsed(),
		SensorStatus: domain.SensorStatusAccuracyMedium,
	}}
	update.SpeedSamples = []domain.SamplePoint{{
		Kind:       domain.KindSpeed,
		Value:      2.5,
		BootOffset: f.clk.Elapsed(),
	}}
	update.TotalDistance = &domain.CumulativePoint{Kind: domain.KindDistanceTotal, Total: 750, Instant: f.clk.Now()}
	update.TotalCalories = &domain.CumulativePoint{Kind: domain.KindCaloriesTotal, Total: 63.4, Instant: f.clk.Now()}
	f.push(update)

	if state := recv(t, states); state.Status != domain.StatusInProgress {
		t.Fatalf("status = %q", state.Status)
	}
	if hr := recv(t, heartRates); hr.BPM != 148 || hr.Accuracy != domain.AccuracyMedium {
		t.Fatalf("heart rate = %+v", hr)
	}
	if speed := recv(t, speeds); speed.MetersPerSecond != 2.5 {
		t.Fatalf("speed = %+v", speed)
	}
	if pace := recv(t, paces); pace.PerKM != 400*time.Second || pace.Derived {
		t.Fatalf("pace = %+v", pace)
	}
	if distance := recv(t, distances); distance.Total != 750 {
		t.Fatalf("distance = %+v", distance)
	}
	if cal := recv(t, calories); cal.Total != 63 {
		t.Fatalf("calories = %+v", cal)
	}
}

func TestOrchestratorDerivedPaceFromDistanceInterval(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{NativePace: false})

	paces := f.orch.CurrentPaces(context.Background())
	averages := f.orch.AveragePaces(context.Background())

	update := activeUpdate(f.clk, 10*time.Minute)
	update.DistanceIntervals = []domain.IntervalPoint{{
		Kind:            domain.KindDistance,
		Value:           100,
		StartBootOffset: f.clk.Elapsed() - 30*time.Second,
		EndBootOffset:   f.clk.Elapsed(),
	}}
	update.TotalDistance = &domain.CumulativePoint{Kind: domain.KindDistanceTotal, Total: 2000, Instant: f.clk.Now()}
	f.push(update)

	if pace := recv(t, paces); pace.PerKM != 300*time.Second || !pace.Derived {
		t.Fatalf("interval pace = %+v", pace)
	}
	if avg := recv(t, averages); avg.PerKM != 300*time.Second || !avg.Derived {
		t.Fatalf("average pace = %+v", avg)
	}
}

func TestOrchestratorHighAccuracyFilter(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{OnlyHighHRAccuracy: true})

	heartRates := f.orch.HeartRates(context.Background())

	update := activeUpdate(f.clk, time.Minute)
	update.HeartRateSamples = []domain.SamplePoint{
		{Kind: domain.KindHeartRateBPM, Value: 120, SensorStatus: domain.SensorStatusAccuracyLow},
		{Kind: domain.KindHeartRateBPM, Value: 130, SensorStatus: domain.SensorStatusAccuracyHigh},
	}
	f.push(update)

	if hr := recv(t, heartRates); hr.BPM != 130 {
		t.Fatalf("filter let through %+v", hr)
	}
}

func TestOrchestratorPrematureEndPublishesError(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	errCh := f.orch.Errors(context.Background())

	update := activeUpdate(f.clk, time.Minute)
	update.State = domain.PlatformEnded
	update.EndReason = domain.EndReasonAborted
	f.push(update)

	svcErr := recv(t, errCh)
	if svcErr.Message == "" {
		t.Fatalf("error event = %+v, want message", svcErr)
	}
}

func TestOrchestratorUserEndIsNotAnError(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	errCh := f.orch.Errors(context.Background())
	states := f.orch.States(context.Background())
	recv(t, states) // bootstrap state

	update := activeUpdate(f.clk, time.Minute)
	update.State = domain.PlatformEnded
	update.EndReason = domain.EndReasonUserEnd
	f.push(update)

	if state := recv(t, states); state.Status != domain.StatusEnded {
		t.Fatalf("status = %q", state.Status)
	}
	select {
	case svcErr := <-errCh:
		t.Fatalf("unexpected error event: %+v", svcErr)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOrchestratorExternalHeartRateJoinsStream(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	heartRates := f.orch.HeartRates(context.Background())
	f.orch.PublishExternalHeartRate(context.Background(), domain.HeartRate{
		BPM:     156,
		Source:  domain.ExternalSource("polar-1"),
		Instant: f.clk.Now(),
	})

	hr := recv(t, heartRates)
	if hr.Source != domain.ExternalSource("polar-1") || hr.BPM != 156 {
		t.Fatalf("heart rate = %+v", hr)
	}
}

func TestOrchestratorMetricsSurviveImmediateEnd(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	states := f.orch.States(context.Background())
	recv(t, states) // bootstrap state

	if _, err := f.orch.StartExercise(context.Background(), domain.KindOutdoorRun, true); err != nil {
		t.Fatalf("StartExercise: %v", err)
	}
	cur, _ := f.current.Load(context.Background())
	exerciseID := cur.ExerciseID

	// The end update lands right behind the metric-bearing one. Rows
	// from the earlier update must already be on disk when the pointer
	// is cleared.
	update := activeUpdate(f.clk, time.Minute)
	update.HeartRateSamples = []domain.SamplePoint{{
		Kind:         domain.KindHeartRateBPM,
		Value:        144,
		BootOffset:   f.clk.Elapsed(),
		SensorStatus: domain.SensorStatusAccuracyHigh,
	}}
	update.TotalDistance = &domain.CumulativePoint{Kind: domain.KindDistanceTotal, Total: 310, Instant: f.clk.Now()}
	f.push(update)

	ended := activeUpdate(f.clk, time.Minute)
	ended.State = domain.PlatformEnded
	ended.EndReason = domain.EndReasonUserEnd
	f.push(ended)

	for recv(t, states).Status != domain.StatusEnded {
	}

	gotHR, _ := f.heartRates.ListForExercise(context.Background(), exerciseID)
	if len(gotHR) != 1 || gotHR[0].BPM != 144 {
		t.Fatalf("heart rates = %+v", gotHR)
	}
	gotDistances, _ := f.distances.ListForExercise(context.Background(), exerciseID)
	if len(gotDistances) != 1 || gotDistances[0].Total != 310 {
		t.Fatalf("distances = %+v", gotDistances)
	}
}

func TestOrchestratorStartClearsReplayedState(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	recv(t, f.orch.States(context.Background())) // bootstrap cached

	if _, err := f.orch.StartExercise(context.Background(), domain.KindOutdoorRun, false); err != nil {
		t.Fatalf("StartExercise: %v", err)
	}

	// A subscriber arriving after start must not see pre-start replay.
	fresh := f.orch.States(context.Background())
	select {
	case state := <-fresh:
		t.Fatalf("stale replay after reset: %+v", state)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOrchestratorForegroundFollowsInProgressEdges(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{})

	states := f.orch.States(context.Background())
	recv(t, states) // bootstrap state

	f.push(activeUpdate(f.clk, time.Minute))
	recv(t, states)

	paused := activeUpdate(f.clk, time.Minute)
	paused.State = domain.PlatformUserPaused
	f.push(paused)
	recv(t, states)

	deadline := time.After(2 * time.Second)
	for {
		f.foreground.mu.Lock()
		moves := append([]bool(nil), f.foreground.moves...)
		f.foreground.mu.Unlock()
		if len(moves) >= 2 {
			if !moves[0] || moves[1] {
				t.Fatalf("foreground moves = %v, want [true false]", moves)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("foreground moves = %v, want 2 edges", moves)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestOrchestratorEndToEndPersistsSession(t *testing.T) {
	t.Parallel()
	f := newOrchestratorFixture(t, service.Options{NativePace: true})

	states := f.orch.States(context.Background())
	recv(t, states) // bootstrap state

	if _, err := f.orch.StartExercise(context.Background(), domain.KindOutdoorRun, true); err != nil {
		t.Fatalf("StartExercise: %v", err)
	}
	cur, _ := f.current.Load(context.Background())
	exerciseID := cur.ExerciseID

	update := activeUpdate(f.clk, 0)
	update.TotalDistance = &domain.CumulativePoint{Kind: domain.KindDistanceTotal, Total: 12, Instant: f.clk.Now()}
	f.push(update)
	recv(t, states)

	ended := activeUpdate(f.clk, 20*time.Minute)
	ended.State = domain.PlatformEnded
	ended.EndReason = domain.EndReasonUserEnd
	f.push(ended)
	recv(t, states)

	deadline := time.After(2 * time.Second)
	for {
		row := f.exercises.row(exerciseID)
		cur, _ := f.current.Load(context.Background())
		if row.startTime != nil && row.endTime != nil && cur.ExerciseID == "" {
			gotDistances, _ := f.distances.ListForExercise(context.Background(), exerciseID)
			if len(gotDistances) != 1 {
				t.Fatalf("distances = %+v", gotDistances)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("persistence incomplete: row=%+v pointer=%+v", row, cur)
		case <-time.After(time.Millisecond):
		}
	}
}
