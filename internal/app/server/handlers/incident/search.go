package incident

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"opsguard/common/model"
	"opsguard/internal/app/server/ginx"
)

const defaultSearchK = 5

// SearchRequest 相似检索请求；GET 使用 ?q=&service=&k=
type SearchRequest struct {
	Text    string `json:"text" form:"q" binding:"required,max=2000"`
	Service string `json:"service" form:"service"`
	K       int    `json:"k" form:"k" binding:"omitempty,min=1,max=50"`
}

// SearchResponse 相似检索响应
type SearchResponse struct {
	Query   string            `json:"query"`
	Count   int               `json:"count"`
	Results []model.SearchHit `json:"results"`
}

// Search 按自然语言检索相似事故
// GET /search, POST /search
func (h *IncidentHandler) Search(c *gin.Context) {
	var req SearchRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
	}
	if err != nil {
		ginx.BadRequestWithValidation(c, err)
		return
	}
	if req.K == 0 {
		req.K = defaultSearchK
	}

	ctx := c.Request.Context()
	vec, err := h.embedder.Embed(ctx, req.Text)
	if err != nil {
		_ = c.Error(err)
		return
	}
	hits, err := h.index.Query(ctx, vec, req.Service, req.K)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ginx.Success(c, SearchResponse{
		Query:   req.Text,
		Count:   len(hits),
		Results: hits,
	})
}
