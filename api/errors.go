package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/payroll"
	"github.com/xraph/payroll/cron"
	"github.com/xraph/payroll/document"
)

var (
	errMissingActor = errors.New("payroll: missing or invalid " + HeaderActorID + " header")
	errBadRequest   = errors.New("payroll: bad request")
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	// Op names the failing dependency of a resource error.
	Op string `json:"op,omitempty"`
}

// statusOf maps an error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, payroll.ErrMissingKey),
		errors.Is(err, errMissingActor),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, payroll.ErrDuplicateKey),
		errors.Is(err, cron.ErrEntryExists):
		return http.StatusConflict
	case payroll.IsNotFound(err),
		errors.Is(err, cron.ErrEntryNotFound),
		document.IsValidation(err):
		return http.StatusNotFound
	default:
		// Resource errors and anything unrecognized.
		return http.StatusInternalServerError
	}
}

// abortWithError writes err with the status statusOf assigns.
func abortWithError(c *gin.Context, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var re *payroll.ResourceError
	if errors.As(err, &re) {
		resp.Op = re.Op
	}
	var ve *document.ValidationError
	if errors.As(err, &ve) {
		resp.Error = ve.Reason
	}
	c.AbortWithStatusJSON(statusOf(err), resp)
}
