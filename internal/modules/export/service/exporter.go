package service

import (
	"context"
	"fmt"

	"stride/internal/modules/export/domain"
	"stride/internal/modules/export/port/out"
	apperrors "stride/internal/platform/errors"
)

// Exporter reads a stored session back, fuses its metric rows into one
// time series and hands it to the sink for the requested format.
type Exporter struct {
	reader out.SessionReader
	sinks  map[string]out.SeriesSink
}

func NewExporter(reader out.SessionReader, sinks map[string]out.SeriesSink) *Exporter {
	return &Exporter{reader: reader, sinks: sinks}
}

func (e *Exporter) Formats() []string {
	formats := make([]string, 0, len(e.sinks))
	for f := range e.sinks {
		formats = append(formats, f)
	}
	return formats
}

func (e *Exporter) Export(ctx context.Context, exerciseID, format, path string) (int, error) {
	sink, ok := e.sinks[format]
	if !ok {
		return 0, fmt.Errorf("%w: unsupported format %q", apperrors.ErrInvalidInput, format)
	}
	session, points, err := e.series(ctx, exerciseID)
	if err != nil {
		return 0, err
	}
	if err := sink.Write(path, session, points); err != nil {
		return 0, fmt.Errorf("write %s export: %w", format, err)
	}
	return len(points), nil
}

func (e *Exporter) Summary(ctx context.Context, exerciseID string) (domain.Session, domain.Summary, error) {
	session, points, err := e.series(ctx, exerciseID)
	if err != nil {
		return domain.Session{}, domain.Summary{}, err
	}
	return session, domain.Summarize(session, points), nil
}

func (e *Exporter) series(ctx context.Context, exerciseID string) (domain.Session, []domain.Point, error) {
	session, err := e.reader.Session(ctx, exerciseID)
	if err != nil {
		return domain.Session{}, nil, err
	}
	distances, err := e.reader.Distances(ctx, exerciseID)
	if err != nil {
		return domain.Session{}, nil, fmt.Errorf("read distances: %w", err)
	}
	speeds, err := e.reader.Speeds(ctx, exerciseID)
	if err != nil {
		return domain.Session{}, nil, fmt.Errorf("read speeds: %w", err)
	}
	heartRates, err := e.reader.HeartRates(ctx, exerciseID)
	if err != nil {
		return domain.Session{}, nil, fmt.Errorf("read heart rates: %w", err)
	}
	return session, domain.Fuse(distances, speeds, heartRates), nil
}
