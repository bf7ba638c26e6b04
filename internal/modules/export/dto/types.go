package dto

import "time"

type ExportInput struct {
	ExerciseID string
	Format     string
	Path       string
}

type ExportOutput struct {
	ExerciseID string
	Format     string
	Path       string
	Rows       int
}

type ImportInput struct {
	Path string
}

type ImportOutput struct {
	ExerciseID string
	Title      string
	Records    int
	Duration   time.Duration
}

type SummaryOutput struct {
	ExerciseID     string
	Title          string
	Kind           string
	StartTime      *time.Time
	Duration       time.Duration
	TotalDistanceM float64
	AvgHRBPM       int
	MaxHRBPM       int
	AvgPacePerKM   time.Duration
}
