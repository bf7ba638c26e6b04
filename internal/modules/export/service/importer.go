package service

import (
	"context"
	"fmt"
	"strings"

	"stride/internal/modules/export/domain"
	"stride/internal/modules/export/port/out"
	"stride/internal/platform/id"
	"stride/internal/platform/tx"
)

// Importer decodes a recording file and persists it as a completed
// session with one metric row per channel per record. All rows land in
// one transaction; a half-imported session never becomes visible.
type Importer struct {
	source out.ActivitySource
	writer out.SessionWriter
	ids    id.Generator
	txm    tx.Manager
}

func NewImporter(source out.ActivitySource, writer out.SessionWriter, ids id.Generator, txm tx.Manager) *Importer {
	return &Importer{source: source, writer: writer, ids: ids, txm: txm}
}

func (i *Importer) Import(ctx context.Context, path string) (domain.Session, int, error) {
	activity, err := i.source.Read(path)
	if err != nil {
		return domain.Session{}, 0, fmt.Errorf("read activity: %w", err)
	}

	start := activity.StartTime
	duration := activity.Duration
	session := domain.Session{
		ID:        i.ids.New(),
		Title:     importTitle(activity.Sport, activity),
		Kind:      activity.Sport,
		StartTime: &start,
		EndTime:   activity.EndTime,
		Duration:  &duration,
	}
	err = i.txm.Within(ctx, func(ctx context.Context) error {
		if err := i.writer.InsertSession(ctx, session); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		for _, record := range activity.Records {
			if err := i.writer.InsertRecord(ctx, session.ID, record); err != nil {
				return fmt.Errorf("insert record at %s: %w", record.Offset, err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Session{}, 0, err
	}
	return session, len(activity.Records), nil
}

func importTitle(sport string, activity domain.Activity) string {
	name := strings.TrimSpace(sport)
	if name == "" {
		name = "activity"
	}
	name = strings.ToUpper(name[:1]) + name[1:]
	return name + " " + activity.StartTime.Format("Mon 15:04")
}
