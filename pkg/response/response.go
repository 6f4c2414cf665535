// Package response provides the JSON envelope helpers used by all HTTP
// handlers. Successful responses are {"data": ...} with an optional "meta"
// block; failures are {"error": {"code", "message", "detail"}}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"traceroot/pkg/errors"
)

// ErrorBody is the wire shape of a failure.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

type envelope struct {
	Data  any        `json:"data,omitempty"`
	Meta  any        `json:"meta,omitempty"`
	Error *ErrorBody `json:"error,omitempty"`
}

// Success writes 200 with the data envelope.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Data: data})
}

// SuccessWithMeta writes 200 with data and meta blocks.
func SuccessWithMeta(c *gin.Context, data, meta any) {
	c.JSON(http.StatusOK, envelope{Data: data, Meta: meta})
}

// Created writes 201 with the data envelope.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, envelope{Data: data})
}

// NoContent writes 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest writes 400 with a bad_request error body.
func BadRequest(c *gin.Context, message, detail string) {
	writeError(c, http.StatusBadRequest, "bad_request", message, detail)
}

// ValidationError writes 400 with a validation_error error body.
func ValidationError(c *gin.Context, message, detail string) {
	writeError(c, http.StatusBadRequest, "validation_error", message, detail)
}

// Unauthorized writes 401.
func Unauthorized(c *gin.Context, message string) {
	writeError(c, http.StatusUnauthorized, "unauthorized", message, "")
}

// Forbidden writes 403.
func Forbidden(c *gin.Context, message string) {
	writeError(c, http.StatusForbidden, "forbidden", message, "")
}

// NotFound writes 404 for the named resource kind.
func NotFound(c *gin.Context, resource string) {
	writeError(c, http.StatusNotFound, "not_found", resource+" not found", "")
}

// Conflict writes 409.
func Conflict(c *gin.Context, message, detail string) {
	writeError(c, http.StatusConflict, "conflict", message, detail)
}

// PayloadTooLarge writes 413.
func PayloadTooLarge(c *gin.Context, detail string) {
	writeError(c, http.StatusRequestEntityTooLarge, "payload_too_large", "payload too large", detail)
}

// InternalServerError writes 500 with a client-safe message only.
func InternalServerError(c *gin.Context, message string) {
	writeError(c, http.StatusInternalServerError, "internal_error", message, "")
}

// Error maps a typed application error onto the matching status code.
// Unclassified errors are reported as an opaque 500.
func Error(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		InternalServerError(c, "internal server error")
		return
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation:
		ValidationError(c, appErr.Message, appErr.Detail)
	case errors.ErrorTypeUnauthorized:
		Unauthorized(c, appErr.Message)
	case errors.ErrorTypeForbidden:
		Forbidden(c, appErr.Message)
	case errors.ErrorTypeNotFound:
		writeError(c, http.StatusNotFound, "not_found", appErr.Message, appErr.Detail)
	case errors.ErrorTypeConflict:
		Conflict(c, appErr.Message, appErr.Detail)
	case errors.ErrorTypePayloadTooLarge:
		PayloadTooLarge(c, appErr.Detail)
	default:
		InternalServerError(c, appErr.Message)
	}
}

func writeError(c *gin.Context, status int, code, message, detail string) {
	c.AbortWithStatusJSON(status, envelope{Error: &ErrorBody{
		Code:    code,
		Message: message,
		Detail:  detail,
	}})
}
