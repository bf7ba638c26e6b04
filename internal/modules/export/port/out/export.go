package out

import (
	"context"

	"stride/internal/modules/export/domain"
)

// SessionReader reads stored sessions and their metric rows back for
// export and summary.
type SessionReader interface {
	Session(ctx context.Context, exerciseID string) (domain.Session, error)
	Sessions(ctx context.Context) ([]domain.Session, error)
	Distances(ctx context.Context, exerciseID string) ([]domain.DistancePoint, error)
	Speeds(ctx context.Context, exerciseID string) ([]domain.SpeedPoint, error)
	HeartRates(ctx context.Context, exerciseID string) ([]domain.HeartRatePoint, error)
}

// SessionWriter persists an imported recording as a completed session.
// InsertSession writes the exercise row; InsertRecord appends one row
// per channel the record carries.
type SessionWriter interface {
	InsertSession(ctx context.Context, session domain.Session) error
	InsertRecord(ctx context.Context, exerciseID string, r domain.ActivityRecord) error
}

// ActivitySource decodes a recording file into a normalized activity.
type ActivitySource interface {
	Read(path string) (domain.Activity, error)
}

// SeriesSink writes a fused time series to a file in one format.
type SeriesSink interface {
	Write(path string, session domain.Session, points []domain.Point) error
}
