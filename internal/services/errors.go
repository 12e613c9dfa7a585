package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFetch marks failures while downloading source media.
	ErrFetch = errors.New("fetch error")
	// ErrDuplicate marks a dedup ledger hit; terminal, never retried.
	ErrDuplicate = errors.New("duplicate content")
	// ErrAuth marks credential failures against the destination platform.
	ErrAuth = errors.New("authentication error")
	// ErrTransient marks retryable transport failures (rate limits, 5xx, timeouts).
	ErrTransient = errors.New("transient failure")
	// ErrTransform marks external media-process failures.
	ErrTransform = errors.New("transform error")
	// ErrValidation marks bad input rejected before it enters the queue.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration discovered at run time.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind is a coarse failure category used for item error labels and recovery
// hints.
type Kind string

const (
	KindFetch      Kind = "fetch"
	KindDuplicate  Kind = "duplicate"
	KindAuth       Kind = "auth"
	KindTransient  Kind = "transient"
	KindTransform  Kind = "transform"
	KindValidation Kind = "validation"
	KindUnknown    Kind = "unknown"
)

// Classify maps an error chain to its failure kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrTransform):
		return KindTransform
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration):
		return KindValidation
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindUnknown
	}
}

// RecoveryHint returns the operator-facing next step for a failure kind.
func RecoveryHint(kind Kind) string {
	switch kind {
	case KindDuplicate:
		return "content already published; remove the item or change the source"
	case KindAuth:
		return "reconnect the destination account"
	case KindTransient:
		return "retry with 'clipshift queue retry' once the destination recovers"
	case KindFetch:
		return "check the source URL and network, then retry"
	case KindTransform:
		return "inspect ffmpeg output in the logs"
	case KindValidation:
		return "fix the request and enqueue again"
	default:
		return "check logs for details"
	}
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
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
