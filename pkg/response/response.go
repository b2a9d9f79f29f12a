package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusOK is the status string every successful response carries.
const StatusOK = "OK"

// Response is the envelope returned by every endpoint. On failure Status
// holds the human-readable message and Code a stable machine-readable code.
type Response struct {
	Status string      `json:"status"`
	Code   string      `json:"code,omitempty"`
	Data   interface{} `json:"data,omitempty"`
}

// Success sends a 200 response with an optional payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: StatusOK, Data: data})
}

// OK sends a bare {"status":"OK"}.
func OK(c *gin.Context) {
	c.JSON(http.StatusOK, Response{Status: StatusOK})
}

// Created sends a 201 created response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Status: StatusOK, Data: data})
}

// Error sends an error response.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, Response{Status: message, Code: code})
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// Forbidden sends a 403 error response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, "FORBIDDEN", message)
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, "NOT_FOUND", message)
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, "CONFLICT", message)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
