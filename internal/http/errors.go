package http

import "edge-log-analytics/internal/shared/svcerrors"

const (
	errCodeStatusUnavailable = "HTTP_5030"
	errCodeEncodeStatus      = "HTTP_9000"
)

func errStatusUnavailable() *svcerrors.ServiceError {
	return svcerrors.NewUnavailableError(errCodeStatusUnavailable, "run status is not available yet", nil)
}

func errEncodeStatus(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInternalError(errCodeEncodeStatus, cause)
}
