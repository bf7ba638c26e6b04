package out

import (
	"fmt"
	"math"
	"os"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"stride/internal/modules/export/domain"
)

type seriesParquetRow struct {
	ExerciseID string  `parquet:"name=exercise_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	OffsetMS   int64   `parquet:"name=offset_ms, type=INT64"`
	HRBPM      float64 `parquet:"name=hr_bpm, type=DOUBLE"`
	HRSource   string  `parquet:"name=hr_source, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	SpeedMPS   float64 `parquet:"name=speed_mps, type=DOUBLE"`
	DistanceM  float64 `parquet:"name=distance_m, type=DOUBLE"`
	ValidHR    bool    `parquet:"name=valid_hr, type=BOOLEAN"`
	ValidSpeed bool    `parquet:"name=valid_speed, type=BOOLEAN"`
	ValidDist  bool    `parquet:"name=valid_distance, type=BOOLEAN"`
}

// ParquetSeriesSink writes the fused series as snappy-compressed
// parquet. Absent values are NaN with their valid flag false.
type ParquetSeriesSink struct{}

func NewParquetSeriesSink() ParquetSeriesSink {
	return ParquetSeriesSink{}
}

func (ParquetSeriesSink) Write(path string, session domain.Session, points []domain.Point) error {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(seriesParquetRow), 4)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, p := range points {
		row := seriesParquetRow{
			ExerciseID: session.ID,
			OffsetMS:   p.Offset.Milliseconds(),
			HRBPM:      math.NaN(),
			HRSource:   p.HRSource,
			SpeedMPS:   math.NaN(),
			DistanceM:  math.NaN(),
		}
		if p.HRBPM != nil {
			row.HRBPM = float64(*p.HRBPM)
			row.ValidHR = true
		}
		if p.MetersPerSecond != nil {
			row.SpeedMPS = *p.MetersPerSecond
			row.ValidSpeed = true
		}
		if p.DistanceMeters != nil {
			row.DistanceM = *p.DistanceMeters
			row.ValidDist = true
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return fmt.Errorf("write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finish parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("close parquet buffer: %w", err)
	}
	if err := os.WriteFile(path, fw.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write parquet file: %w", err)
	}
	return nil
}
