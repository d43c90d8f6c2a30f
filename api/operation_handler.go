package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xraph/payroll/pipeline"
	"github.com/xraph/payroll/run"
)

// operation returns the handler of one idempotency-gated operation.
func (a *API) operation(op run.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := actorID(c)
		if err != nil {
			abortWithError(c, err)
			return
		}

		out, err := a.p.Execute(c.Request.Context(), op, actor, c.GetHeader(HeaderIdempotencyKey))
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Header(HeaderRunID, out.RunID.String())
		if out.Cached {
			c.Header(HeaderReplayed, "true")
		}
		c.Data(outcomeStatus(out.Status), "application/json; charset=utf-8", out.Body)
	}
}

// actorID reads the caller from the X-Actor-ID header.
func actorID(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.GetHeader(HeaderActorID))
	if raw == "" {
		return 0, errMissingActor
	}
	actor, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || actor <= 0 {
		return 0, fmt.Errorf("%w: %q", errMissingActor, raw)
	}
	return actor, nil
}

func outcomeStatus(s pipeline.Status) int {
	switch s {
	case pipeline.StatusNotFound:
		return http.StatusNotFound
	case pipeline.StatusFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
