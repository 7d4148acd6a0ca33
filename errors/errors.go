package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes
var (
	ErrToolNotInstalled = errors.New("required tool not installed")
	ErrEmptyAudio       = errors.New("audio buffer is empty")
	ErrCanceled         = errors.New("run canceled")
)

// AnalysisError reports that key or pitch analysis could not produce a result
// from its input (silent chroma, misaligned pitch frames).
type AnalysisError struct {
	Op     string
	Reason string
	Cause  error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("analysis failed in %s: %s: %v", e.Op, e.Reason, e.Cause)
	}
	return fmt.Sprintf("analysis failed in %s: %s", e.Op, e.Reason)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// NewAnalysisError creates an AnalysisError
func NewAnalysisError(op, reason string) *AnalysisError {
	return &AnalysisError{Op: op, Reason: reason}
}

// ConfigurationError reports an invalid setting or an unsupported request.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid configuration %s=%v: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}

// NewConfigurationError creates a ConfigurationError
func NewConfigurationError(field string, value any, reason string) *ConfigurationError {
	return &ConfigurationError{Field: field, Value: value, Reason: reason}
}

// ShiftError reports a pitch shift that was requested outside the supported
// range or that a shifting backend failed to render.
type ShiftError struct {
	Semitones int
	Backend   string
	Reason    string
	Cause     error
}

func (e *ShiftError) Error() string {
	msg := fmt.Sprintf("pitch shift by %d semitones", e.Semitones)
	if e.Backend != "" {
		msg += fmt.Sprintf(" (%s)", e.Backend)
	}
	msg += ": " + e.Reason
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ShiftError) Unwrap() error {
	return e.Cause
}

// StageFailure wraps the error that halted a pipeline run together with the
// stage it happened in.
type StageFailure struct {
	Stage string
	Cause error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Cause)
}

func (e *StageFailure) Unwrap() error {
	return e.Cause
}

// NewStageFailure creates a StageFailure
func NewStageFailure(stage string, cause error) *StageFailure {
	return &StageFailure{Stage: stage, Cause: cause}
}

// ProcessError represents a failure in an external process
type ProcessError struct {
	Tool     string // "demucs", "crepe", "rubberband", "ffmpeg"
	Stage    string // "separate", "detect_pitch", "shift", "mix"
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed at %s (exit %d): %s", e.Tool, e.Stage, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed at %s (exit %d)", e.Tool, e.Stage, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// NewProcessError creates a ProcessError
func NewProcessError(tool, stage string, exitCode int, stderr string, cause error) *ProcessError {
	return &ProcessError{
		Tool:     tool,
		Stage:    stage,
		ExitCode: exitCode,
		Stderr:   stderr,
		Cause:    cause,
	}
}

// StageOf returns the stage name carried by the first StageFailure in err's
// chain, or "" when there is none.
func StageOf(err error) string {
	var sf *StageFailure
	if errors.As(err, &sf) {
		return sf.Stage
	}
	return ""
}
