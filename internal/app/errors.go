package app

import "edge-log-analytics/internal/shared/svcerrors"

const (
	errCodeInputNotFound = "APP_1000"
	errCodeDiscover      = "APP_9000"
	errCodeWriteReport   = "APP_9001"
)

func errInputNotFound(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInvalidArgumentError(errCodeInputNotFound, "input path does not exist", cause)
}

func errDiscover(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInternalError(errCodeDiscover, cause)
}

func errWriteReport(cause error) *svcerrors.ServiceError {
	return svcerrors.NewInternalError(errCodeWriteReport, cause)
}
