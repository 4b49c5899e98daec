// Package errors writes JSON error responses and logs the failures behind
// them.
//
// Every response has the shape {"error": "<message>"}. Server errors log
// the underlying error and return a generic message; the detail is only
// echoed back in development.
package errors

import (
	"net/http"

	"github.com/dalemusser/hearth/internal/app/system/inputval"
	"github.com/dalemusser/hearth/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

const genericServerError = "internal server error"

// Body is the JSON error envelope.
type Body struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// ErrorLogger maps failures to status codes.
type ErrorLogger struct {
	Log *zap.Logger
	Dev bool
}

// NewErrorLogger returns an ErrorLogger. When dev is true, server error
// details are included in responses.
func NewErrorLogger(logger *zap.Logger, dev bool) *ErrorLogger {
	return &ErrorLogger{Log: logger, Dev: dev}
}

func write(w http.ResponseWriter, status int, msg string) {
	jsonutil.Write(w, status, Body{Error: msg})
}

// BadRequest writes 400.
func (e *ErrorLogger) BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, http.StatusBadRequest, msg)
}

// LogBadRequest logs err at debug level and writes 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.Log.Debug(logMsg, zap.Error(err), zap.String("path", r.URL.Path))
	write(w, http.StatusBadRequest, userMsg)
}

// Invalid writes 400 with every validation message joined.
func (e *ErrorLogger) Invalid(w http.ResponseWriter, r *http.Request, res *inputval.Result) {
	write(w, http.StatusBadRequest, res.All())
}

// Unauthorized writes 401.
func (e *ErrorLogger) Unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, http.StatusUnauthorized, msg)
}

// Forbidden writes 403.
func (e *ErrorLogger) Forbidden(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, http.StatusForbidden, msg)
}

// NotFound writes 404.
func (e *ErrorLogger) NotFound(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, http.StatusNotFound, msg)
}

// Conflict writes 409.
func (e *ErrorLogger) Conflict(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, http.StatusConflict, msg)
}

// TooManyRequests writes 429.
func (e *ErrorLogger) TooManyRequests(w http.ResponseWriter, r *http.Request, msg string) {
	write(w, http.StatusTooManyRequests, msg)
}

// LogServerError logs err and writes 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error) {
	e.Log.Error(logMsg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	body := Body{Error: genericServerError}
	if e.Dev && err != nil {
		body.Detail = logMsg + ": " + err.Error()
	}
	jsonutil.Write(w, http.StatusInternalServerError, body)
}
