package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"edge-log-analytics/internal/shared/loggers"
	"edge-log-analytics/internal/shared/svcerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorHandlingAdapter_Errors(t *testing.T) {
	t.Parallel()

	encodeCause := errors.New("json: unsupported value: NaN")

	tests := []struct {
		name             string
		err              error
		expectedStatus   int
		expectedCategory string
		expectedCode     string
		expectedMessage  string
		expectLogged     bool
	}{
		{
			name:             "status not published",
			err:              errStatusUnavailable(),
			expectedStatus:   http.StatusServiceUnavailable,
			expectedCategory: "unavailable",
			expectedCode:     errCodeStatusUnavailable,
			expectedMessage:  "run status is not available yet",
		},
		{
			name:             "status encoding failed",
			err:              errEncodeStatus(encodeCause),
			expectedStatus:   http.StatusInternalServerError,
			expectedCategory: "internal",
			expectedCode:     errCodeEncodeStatus,
			expectedMessage:  "internal server error",
			expectLogged:     true,
		},
		{
			name:             "configuration error",
			err:              svcerrors.NewConfigurationError("AGG_1001", "aggregation level must be >= 1, got 0", nil),
			expectedStatus:   http.StatusInternalServerError,
			expectedCategory: "configuration",
			expectedCode:     "AGG_1001",
			expectedMessage:  "aggregation level must be >= 1, got 0",
		},
		{
			name:             "wrapped flushed engine error",
			err:              fmt.Errorf("merge shards: %w", svcerrors.NewResourceConflictError("AGG_1003", "merge after flush", nil)),
			expectedStatus:   http.StatusConflict,
			expectedCategory: "resource_conflict",
			expectedCode:     "AGG_1003",
			expectedMessage:  "merge after flush",
		},
		{
			name:             "plain error",
			err:              assert.AnError,
			expectedStatus:   http.StatusInternalServerError,
			expectedCategory: "internal",
			expectedCode:     "SYS_9001",
			expectedMessage:  "internal server error",
			expectLogged:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			logger, err := loggers.NewWithWriter("info", &logs)
			require.NoError(t, err)

			handler := errorHandlingAdapter(&testHandler{
				handleFunc: func(w http.ResponseWriter, r *http.Request) error {
					return tt.err
				},
			})

			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			req.Header.Set(headerRequestID, "req-"+tt.expectedCode)
			req = req.WithContext(loggers.WithContext(req.Context(), logger))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get(headerContentType))

			var errorResponse ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errorResponse))
			assert.Equal(t, ErrorResponse{
				RequestID:        "req-" + tt.expectedCode,
				ErrorCategory:    tt.expectedCategory,
				ErrorCode:        tt.expectedCode,
				ErrorDescription: tt.expectedMessage,
			}, errorResponse)

			if tt.expectLogged {
				assert.Contains(t, logs.String(), `"error_code":"`+tt.expectedCode+`"`)
				assert.Contains(t, logs.String(), "internal error in handler")
			} else {
				assert.Empty(t, logs.String(), "non-internal errors are only logged at debug")
			}
		})
	}
}

func TestErrorHandlingAdapter_RecordsServiceErrorOnAppWriter(t *testing.T) {
	t.Parallel()

	handler := errorHandlingAdapter(&testHandler{
		handleFunc: func(w http.ResponseWriter, r *http.Request) error {
			return errStatusUnavailable()
		},
	})

	appWriter := newAppResponseWriter(httptest.NewRecorder(), 1)
	handler.ServeHTTP(appWriter, httptest.NewRequest(http.MethodGet, "/status", nil))

	status, code := responseOutcome(appWriter)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, errCodeStatusUnavailable, code)
}

func TestErrorHandlingAdapter_NoError(t *testing.T) {
	t.Parallel()

	handler := errorHandlingAdapter(&testHandler{
		handleFunc: func(w http.ResponseWriter, r *http.Request) error {
			return writeJSON(w, http.StatusOK, map[string]string{"phase": "completed"})
		},
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "{\"phase\":\"completed\"}\n", rr.Body.String())
}

func TestWriteJSON_EncodeFailureLeavesResponseUnwritten(t *testing.T) {
	t.Parallel()

	rr := httptest.NewRecorder()
	err := writeJSON(rr, http.StatusOK, map[string]float64{"p50": math.NaN()})
	require.Error(t, err)

	assert.False(t, rr.Flushed)
	assert.Empty(t, rr.Header().Get(headerContentType))
	assert.Empty(t, rr.Body.String())

	// the adapter can still send a proper error response afterwards
	handler := errorHandlingAdapter(&testHandler{
		handleFunc: func(w http.ResponseWriter, r *http.Request) error {
			if err := writeJSON(w, http.StatusOK, math.Inf(1)); err != nil {
				return errEncodeStatus(err)
			}
			return nil
		},
	})
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/status", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var errorResponse ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errorResponse))
	assert.Equal(t, errCodeEncodeStatus, errorResponse.ErrorCode)
}

// testHandler adapts a function to AppHttpHandler.
type testHandler struct {
	handleFunc func(w http.ResponseWriter, r *http.Request) error
}

func (h *testHandler) Handle(w http.ResponseWriter, r *http.Request) error {
	return h.handleFunc(w, r)
}
