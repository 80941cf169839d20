package incident

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"opsguard/internal/app/server/ginx"
)

// Get 获取事故详情
// GET /incidents/:id
func (h *IncidentHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ginx.BadRequest(c, "incident id must be a positive integer")
		return
	}

	inc, err := h.incidents.GetIncident(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ginx.Success(c, inc)
}
