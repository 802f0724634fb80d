package orchestrator

import (
	"github.com/Ramsey-B/moss/pkg/errors"
	"github.com/Ramsey-B/moss/pkg/report"
)

const (
	DirectionExport   = "export"
	DirectionImport   = "import"
	DirectionValidate = "validate"
)

type Status string

const (
	StatusSuccess      Status = "success"
	StatusCanceled     Status = "canceled"
	StatusInvalidInput Status = "invalid_input"
	StatusToolFailure  Status = "tool_failure"
	StatusMappingError Status = "mapping_error"
)

// StatusOf maps a run error onto the user facing status. Schema, integrity
// and referential failures surface as mapping errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	switch errors.KindOf(err) {
	case errors.KindCanceled:
		return StatusCanceled
	case errors.KindInvalidInput:
		return StatusInvalidInput
	case errors.KindToolFailure:
		return StatusToolFailure
	default:
		return StatusMappingError
	}
}

// ExitCode is the process exit status of the CLI.
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusInvalidInput:
		return 2
	case StatusToolFailure:
		return 3
	case StatusCanceled:
		return 130
	default:
		return 1
	}
}

// Result describes a finished run. LogPath points at the log documenting
// the outcome: the failing phase's log, or the tool log for tool failures.
type Result struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	Direction string           `json:"direction" yaml:"direction"`
	Model     string           `json:"model,omitempty" yaml:"model,omitempty"`
	Status    Status           `json:"status" yaml:"status"`
	LogPath   string           `json:"log_path,omitempty" yaml:"log_path,omitempty"`
	Warnings  []report.Warning `json:"warnings" yaml:"warnings"`
	Counts    map[string]int   `json:"counts,omitempty" yaml:"counts,omitempty"`
	Labels    int              `json:"labels,omitempty" yaml:"labels,omitempty"`
	Duration  string           `json:"duration" yaml:"duration"`
	Error     string           `json:"error,omitempty" yaml:"error,omitempty"`
	Err       error            `json:"-" yaml:"-"`
}
