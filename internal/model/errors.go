package model

import (
	"fmt"
	"time"
)

// SelectionError means the cohort criteria cannot be satisfied by the workbook.
type SelectionError struct {
	Reason string
}

func (e *SelectionError) Error() string { return "cohort selection: " + e.Reason }

// SourceMissingError means a backing file is absent, unreadable, or timed out.
type SourceMissingError struct {
	Path string
	Err  error
}

func (e *SourceMissingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timeseries source %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("timeseries source %s: missing", e.Path)
}

func (e *SourceMissingError) Unwrap() error { return e.Err }

// SchemaError means an input table lacks expected columns or carries
// unparseable values.
type SchemaError struct {
	Path   string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("schema error in %s, column %q: %s", e.Path, e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error in %s: %s", e.Path, e.Reason)
}

// IntegrityError means a timeseries index violates the frame invariants:
// a gap, a duplicate, or an out-of-order timestamp.
type IntegrityError struct {
	Path   string
	At     time.Time
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("timeseries integrity in %s at %s: %s", e.Path, e.At.Format(time.RFC3339), e.Reason)
}

// AlignmentError means a building's frame does not fully cover the scenario
// period. Partial coverage fails the whole run; there is no silent truncation.
type AlignmentError struct {
	Building string
	Period   Period
	Reason   string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("alignment: building %s does not cover %s: %s", e.Building, e.Period, e.Reason)
}

// WeatherCoverageError means the weather series does not fully cover the
// scenario period while weather-enabling is active.
type WeatherCoverageError struct {
	Period Period
	Reason string
}

func (e *WeatherCoverageError) Error() string {
	return fmt.Sprintf("weather coverage for %s: %s", e.Period, e.Reason)
}

// RunMismatchError means RunResults are not commensurable (differing periods
// or channel sets) and cannot be averaged.
type RunMismatchError struct {
	Reason string
}

func (e *RunMismatchError) Error() string { return "run mismatch: " + e.Reason }

// InsufficientDataError means a month holds too few complete days to yield a
// typical-day profile.
type InsufficientDataError struct {
	Month time.Month
	Year  int
	Days  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("typical day: %s %d has only %d complete day(s) of data", e.Month, e.Year, e.Days)
}
