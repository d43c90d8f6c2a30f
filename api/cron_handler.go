package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xraph/payroll/cron"
)

func (a *API) listCrons(c *gin.Context) {
	entries := a.sched.Entries()
	if entries == nil {
		entries = []*cron.Entry{}
	}
	c.JSON(http.StatusOK, entries)
}

// fireCron runs an entry now. Managers already handled in the current
// period are reported as skipped.
func (a *API) fireCron(c *gin.Context) {
	rep, err := a.sched.Fire(c.Request.Context(), c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (a *API) enableCron(c *gin.Context)  { a.setCronEnabled(c, true) }
func (a *API) disableCron(c *gin.Context) { a.setCronEnabled(c, false) }

func (a *API) setCronEnabled(c *gin.Context, enabled bool) {
	name := c.Param("name")
	if err := a.sched.SetEnabled(name, enabled); err != nil {
		abortWithError(c, err)
		return
	}
	for _, e := range a.sched.Entries() {
		if e.Name == name {
			c.JSON(http.StatusOK, e)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
