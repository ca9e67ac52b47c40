package aggregators

import (
	"fmt"

	"edge-log-analytics/internal/shared/svcerrors"
)

const (
	codeInvalidWindow       = "AGG_1000"
	codeInvalidLevel        = "AGG_1001"
	codeInvalidMarkers      = "AGG_1002"
	codeEngineFlushed       = "AGG_1003"
	codeInvalidQuantile     = "AGG_1004"
	codeIncompatibleEngines = "AGG_1005"
	codeUnsupportedEvent    = "AGG_1006"

	codeInternalDigestFailed = "AGG_9000"
)

// errInvalidWindow returns an error when the window duration is not strictly positive.
func errInvalidWindow(window int64) *svcerrors.ServiceError {
	return svcerrors.NewConfigurationError(codeInvalidWindow, fmt.Sprintf("window duration must be > 0ms, got %dms", window), nil)
}

// errInvalidLevel returns an error for a missing, non-positive or repeated aggregation level.
func errInvalidLevel(msg string) *svcerrors.ServiceError {
	return svcerrors.NewConfigurationError(codeInvalidLevel, msg, nil)
}

func errInvalidMarkers(cause error) *svcerrors.ServiceError {
	return svcerrors.NewConfigurationError(codeInvalidMarkers, "invalid classifier markers", cause)
}

func errInvalidQuantile(q float64) *svcerrors.ServiceError {
	return svcerrors.NewConfigurationError(codeInvalidQuantile, fmt.Sprintf("latency quantile must be in (0, 1), got %v", q), nil)
}

// errEngineFlushed returns an error when an engine is used after its terminal flush.
func errEngineFlushed(op string) *svcerrors.ServiceError {
	return svcerrors.NewResourceConflictError(codeEngineFlushed, op+" after flush", nil)
}

func errIncompatibleEngines(msg string) *svcerrors.ServiceError {
	return svcerrors.NewInvalidArgumentError(codeIncompatibleEngines, msg, nil)
}

func errUnsupportedEvent(event any) *svcerrors.ServiceError {
	return svcerrors.NewInvalidArgumentError(codeUnsupportedEvent, fmt.Sprintf("unsupported event type %T", event), nil)
}

// errInternalDigestFailed returns an error when a latency digest cannot be created or updated.
func errInternalDigestFailed(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInternalError(codeInternalDigestFailed, fmt.Errorf("latencyDigestFailed: %w", cause))
}
