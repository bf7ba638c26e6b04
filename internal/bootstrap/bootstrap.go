package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	deviceinadapter "stride/internal/modules/device/adapter/in"
	deviceoutadapter "stride/internal/modules/device/adapter/out"
	devicedomain "stride/internal/modules/device/domain"
	deviceservice "stride/internal/modules/device/service"
	deviceusecase "stride/internal/modules/device/usecase"
	exerciseinadapter "stride/internal/modules/exercise/adapter/in"
	exerciseoutadapter "stride/internal/modules/exercise/adapter/out"
	exercisedomain "stride/internal/modules/exercise/domain"
	exerciseout "stride/internal/modules/exercise/port/out"
	exerciseservice "stride/internal/modules/exercise/service"
	exerciseusecase "stride/internal/modules/exercise/usecase"
	exportinadapter "stride/internal/modules/export/adapter/in"
	exportoutadapter "stride/internal/modules/export/adapter/out"
	exportout "stride/internal/modules/export/port/out"
	exportservice "stride/internal/modules/export/service"
	exportusecase "stride/internal/modules/export/usecase"
	"stride/internal/platform/clock"
	"stride/internal/platform/config"
	apperrors "stride/internal/platform/errors"
	"stride/internal/platform/id"
	"stride/internal/platform/tx"
)

// Options selects the runtime adapters that cannot come from config
// alone: which exercise client drives the session and whether the BLE
// stack is brought up.
type Options struct {
	// ReplayFile replays a recorded FIT activity as the platform
	// exercise source instead of real hardware.
	ReplayFile string
	// ReplayInterval is the delay between replayed records.
	ReplayInterval time.Duration
	// BLEAdapter is the BlueZ adapter name; empty disables the device
	// module's transport.
	BLEAdapter string
}

type App struct {
	ExerciseCLI exerciseinadapter.CLIHandler
	ExportCLI   exportinadapter.CLIHandler

	// DeviceCLI is nil when the BLE transport is not configured.
	DeviceCLI *deviceinadapter.CLIHandler

	orchestrator *exerciseservice.Orchestrator
	manager      *deviceservice.Manager
}

func New(cfg config.Config, opts Options) (*App, error) {
	clk := clock.NewSystemClock()
	ids := id.UUID{}

	db, err := exerciseoutadapter.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	exercises := exerciseoutadapter.NewSQLiteExerciseStore(db, clk.Now)
	current := exerciseoutadapter.NewFileCurrentExerciseStore(cfg.DataDir)
	writer := exerciseservice.NewWriter(
		exercises,
		exerciseoutadapter.NewSQLiteDistanceStore(db),
		exerciseoutadapter.NewSQLiteSpeedStore(db),
		exerciseoutadapter.NewSQLiteHeartRateStore(db),
		current,
		clk,
		ids,
	)

	client, err := exerciseClient(opts, clk)
	if err != nil {
		return nil, err
	}
	orchestrator := exerciseservice.NewOrchestrator(
		client,
		writer,
		exerciseoutadapter.NewLogForegroundController(),
		clk,
		exerciseservice.Options{
			MetricBuffer:       cfg.MetricBuffer,
			NativePace:         cfg.Pace == config.PaceNative,
			OnlyHighHRAccuracy: cfg.OnlyHighHRAccuracy,
		},
	)

	sessions := exportoutadapter.NewSQLiteSessionStore(db)
	exporter := exportservice.NewExporter(sessions, map[string]exportout.SeriesSink{
		"csv":     exportoutadapter.NewCSVSeriesSink(),
		"parquet": exportoutadapter.NewParquetSeriesSink(),
	})
	importer := exportservice.NewImporter(
		exportoutadapter.NewFITActivityReader(),
		sessions,
		ids,
		tx.NewSQLManager(db),
	)

	app := &App{
		ExerciseCLI:  exerciseinadapter.NewCLIHandler(exerciseusecase.NewInteractor(orchestrator, exercises, current, clk)),
		ExportCLI:    exportinadapter.NewCLIHandler(exportusecase.NewInteractor(exporter, importer)),
		orchestrator: orchestrator,
	}

	if opts.BLEAdapter != "" {
		ble, err := deviceoutadapter.NewBlueZClient(opts.BLEAdapter)
		if err != nil {
			return nil, fmt.Errorf("connect bluez: %w", err)
		}
		devices, err := deviceoutadapter.NewSQLiteDeviceStore(db)
		if err != nil {
			return nil, fmt.Errorf("open device store: %w", err)
		}
		manager := deviceservice.NewManager(
			ble,
			devices,
			heartRateSink{orchestrator: orchestrator, clk: clk},
			clk,
			deviceservice.Options{OnlyPolar: cfg.OnlyPolarDevices, AutoReconnect: cfg.AutoReconnect},
		)
		handler := deviceinadapter.NewCLIHandler(deviceusecase.NewInteractor(manager))
		app.DeviceCLI = &handler
		app.manager = manager
	}
	return app, nil
}

// Run drives the long-lived services until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.manager != nil {
		go func() {
			if err := a.manager.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("device manager stopped: %v", err)
			}
		}()
	}
	return a.orchestrator.Run(ctx)
}

func exerciseClient(opts Options, clk clock.Clock) (exerciseout.Client, error) {
	if opts.ReplayFile == "" {
		return idleClient{}, nil
	}
	client, err := exerciseoutadapter.NewFITReplayClient(opts.ReplayFile, clk, opts.ReplayInterval)
	if err != nil {
		return nil, fmt.Errorf("load replay file: %w", err)
	}
	return client, nil
}

// heartRateSink feeds strap samples from the device module into the
// exercise metric streams.
type heartRateSink struct {
	orchestrator *exerciseservice.Orchestrator
	clk          clock.Clock
}

func (s heartRateSink) PublishExternalSample(ctx context.Context, sample devicedomain.HRSample) {
	hr, ok := exercisedomain.HeartRateFromDevice(sample.DeviceID, exercisedomain.ExternalHRSample{
		BPM:              sample.BPM,
		ContactSupported: sample.ContactSupported,
		ContactDetected:  sample.ContactDetected,
	}, s.clk)
	if !ok {
		return
	}
	s.orchestrator.PublishExternalHeartRate(ctx, hr)
}

// idleClient stands in when no exercise source is configured. Queries
// succeed with an empty session; commands fail fast.
type idleClient struct{}

func (idleClient) StartExercise(context.Context, exercisedomain.TrackingConfig) error {
	return apperrors.ErrClientUnavailable
}

func (idleClient) PauseExercise(context.Context) error { return apperrors.ErrClientUnavailable }

func (idleClient) ResumeExercise(context.Context) error { return apperrors.ErrClientUnavailable }

func (idleClient) EndExercise(context.Context) error { return apperrors.ErrClientUnavailable }

func (idleClient) CurrentExerciseInfo(context.Context) (exercisedomain.Info, error) {
	return exercisedomain.Info{Tracked: exercisedomain.TrackedNone}, nil
}

func (idleClient) RegisterCallback(context.Context) (exerciseout.CallbackHandle, error) {
	return idleHandle{updates: make(chan exercisedomain.Update)}, nil
}

type idleHandle struct {
	updates chan exercisedomain.Update
}

func (h idleHandle) Updates() <-chan exercisedomain.Update { return h.updates }

func (h idleHandle) Close() error { return nil }
