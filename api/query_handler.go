package api

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xraph/payroll/artifact"
	"github.com/xraph/payroll/id"
	"github.com/xraph/payroll/run"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// latestArtifact returns the metadata of the newest artifact of a prefix.
func (a *API) latestArtifact(c *gin.Context) {
	prefix := c.Query("prefix")
	if prefix == "" {
		abortWithError(c, fmt.Errorf("%w: prefix is required", errBadRequest))
		return
	}
	art, err := a.p.Latest(c.Request.Context(), prefix)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, art)
}

// employeeSlip renders one employee's slip for the current period without
// archiving it.
func (a *API) employeeSlip(c *gin.Context) {
	employeeID, err := strconv.ParseInt(c.Param("employeeId"), 10, 64)
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: invalid employee id", errBadRequest))
		return
	}
	doc, emp, err := a.p.BuildSlip(c.Request.Context(), employeeID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	name := artifact.SlipPrefix(emp.Code) + artifact.Extension(doc.MediaType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, doc.MediaType, doc.Payload)
}

func (a *API) getRun(c *gin.Context) {
	runID, err := id.ParseRunID(c.Param("runId"))
	if err != nil {
		abortWithError(c, fmt.Errorf("%w: invalid run id: %v", errBadRequest, err))
		return
	}
	r, err := a.p.Run(c.Request.Context(), runID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListRunsQuery holds the filters of GET /v1/runs.
type ListRunsQuery struct {
	Operation string `form:"operation"`
	Actor     int64  `form:"actor"`
	Limit     int    `form:"limit"`
}

func (a *API) listRuns(c *gin.Context) {
	var q ListRunsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	op := run.Operation(q.Operation)
	if op != "" && !op.Valid() {
		abortWithError(c, fmt.Errorf("%w: unknown operation %q", errBadRequest, q.Operation))
		return
	}
	runs, err := a.p.Runs(c.Request.Context(), run.ListOpts{
		Operation: op,
		Actor:     q.Actor,
		Limit:     runLimit(q.Limit),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	if runs == nil {
		runs = []*run.Run{}
	}
	c.JSON(http.StatusOK, runs)
}

func runLimit(n int) int {
	if n <= 0 {
		return defaultRunLimit
	}
	return min(n, maxRunLimit)
}
