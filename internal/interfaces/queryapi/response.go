package queryapi

import (
	"context"
	"net/http"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/trace"
)

const (
	apiVersion  = "2.0"
	errorDomain = "cricket-analytics"
)

// successEnvelope keeps data even when it is an empty list.
type successEnvelope struct {
	APIVersion string `json:"apiVersion"`
	Data       any    `json:"data"`
}

type errorEnvelope struct {
	APIVersion string    `json:"apiVersion"`
	Error      errorBody `json:"error"`
}

type errorBody struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Errors  []errorItem `json:"errors,omitempty"`
}

type errorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

func writeJSON(rc *fasthttp.RequestCtx, status int, payload any) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(payload); err != nil {
		rc.Error(`{"apiVersion":"2.0","error":{"code":500,"message":"encode response","status":"INTERNAL"}}`, http.StatusInternalServerError)
		rc.SetContentType("application/json")
		return
	}

	rc.SetContentType("application/json")
	rc.SetStatusCode(status)
	rc.SetBody(buf.B)
}

func writeSuccess(rc *fasthttp.RequestCtx, status int, data any) {
	writeJSON(rc, status, successEnvelope{APIVersion: apiVersion, Data: data})
}

func writeError(ctx context.Context, rc *fasthttp.RequestCtx, err error) {
	mapped := mapError(err)
	message := err.Error()
	if mapped.HTTPStatus == http.StatusInternalServerError {
		message = "internal server error"
	}

	trace.SpanFromContext(ctx).RecordError(err)

	writeJSON(rc, mapped.HTTPStatus, errorEnvelope{
		APIVersion: apiVersion,
		Error: errorBody{
			Code:    mapped.HTTPStatus,
			Message: message,
			Status:  mapped.Status,
			Errors: []errorItem{
				{Domain: errorDomain, Reason: mapped.Reason, Message: message},
			},
		},
	})
}

func writeInternalError(rc *fasthttp.RequestCtx) {
	const msg = "internal server error"

	writeJSON(rc, http.StatusInternalServerError, errorEnvelope{
		APIVersion: apiVersion,
		Error: errorBody{
			Code:    http.StatusInternalServerError,
			Message: msg,
			Status:  "INTERNAL",
			Errors:  []errorItem{{Domain: errorDomain, Reason: "internalError", Message: msg}},
		},
	})
}

func mapError(err error) mappedError {
	switch {
	case crerr.Is(err, usecase.ErrInvalidInput), crerr.Is(err, usecase.ErrReadOnlyQuery):
		return mappedError{HTTPStatus: http.StatusBadRequest, Reason: "invalidInput", Status: "INVALID_ARGUMENT"}
	case crerr.Is(err, usecase.ErrNotFound):
		return mappedError{HTTPStatus: http.StatusNotFound, Reason: "notFound", Status: "NOT_FOUND"}
	case crerr.Is(err, usecase.ErrDependencyUnavailable), crerr.Is(err, usecase.ErrStoreUnavailable):
		return mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "dependencyUnavailable", Status: "UNAVAILABLE"}
	case crerr.Is(err, usecase.ErrSchemaConflict):
		return mappedError{HTTPStatus: http.StatusInternalServerError, Reason: "schemaConflict", Status: "INTERNAL"}
	default:
		return mappedError{HTTPStatus: http.StatusInternalServerError, Reason: "internalError", Status: "INTERNAL"}
	}
}

func writeMethodNotAllowed(rc *fasthttp.RequestCtx) {
	msg := "method " + string(rc.Method()) + " is not allowed"

	rc.Response.Header.Set("Allow", "GET, HEAD")
	writeJSON(rc, http.StatusMethodNotAllowed, errorEnvelope{
		APIVersion: apiVersion,
		Error: errorBody{
			Code:    http.StatusMethodNotAllowed,
			Message: msg,
			Status:  "METHOD_NOT_ALLOWED",
			Errors:  []errorItem{{Domain: errorDomain, Reason: "methodNotAllowed", Message: msg}},
		},
	})
}
