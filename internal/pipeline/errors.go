package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks fatal problems detected before any unit is
	// processed: bad inputs, missing directories, missing credentials.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnit marks the failure of a single image, archive, or label. Unit
	// failures are counted and never end a run.
	ErrUnit = errors.New("unit failure")
	// ErrPersistence marks a failure to write the mapping, selection list, or
	// manifest after the units were processed.
	ErrPersistence = errors.New("persistence failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with marker for classification by callers. marker should be one of the
// sentinels above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrUnit
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsConfiguration reports whether err aborted a run before it started work.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
