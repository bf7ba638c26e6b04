package out

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"stride/internal/modules/export/domain"
)

// CSVSeriesSink writes the fused series as CSV with one header row.
// Absent values are empty cells.
type CSVSeriesSink struct{}

func NewCSVSeriesSink() CSVSeriesSink {
	return CSVSeriesSink{}
}

func (CSVSeriesSink) Write(path string, session domain.Session, points []domain.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"exercise_id", "offset_ms", "hr_bpm", "hr_source", "speed_mps", "distance_m"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range points {
		row := []string{
			session.ID,
			strconv.FormatInt(p.Offset.Milliseconds(), 10),
			formatIntPtr(p.HRBPM),
			p.HRSource,
			formatFloatPtr(p.MetersPerSecond),
			formatFloatPtr(p.DistanceMeters),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
