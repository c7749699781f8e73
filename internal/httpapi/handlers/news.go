package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streamchat/internal/common"
	"streamchat/internal/news"
)

type processURLsReq struct {
	URLs []string `json:"urls" binding:"required"`
}

// ProcessURLs fetches each URL and returns its extracted title and text.
// Per-URL failures are reported inside the result list, not as an HTTP error.
func (h *Handler) ProcessURLs(c *gin.Context) {
	var req processURLsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	articles := h.News.ProcessURLs(c.Request.Context(), req.URLs)
	common.OK(c, gin.H{"articles": articles})
}

type chunkTextReq struct {
	Text      string `json:"text" binding:"required"`
	ChunkSize int    `json:"chunk_size"`
	// Overlap of zero is meaningful, so absent and zero must differ.
	Overlap *int `json:"overlap"`
}

func (h *Handler) ChunkText(c *gin.Context) {
	var req chunkTextReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.ChunkSize == 0 {
		req.ChunkSize = 1000
	}
	overlap := 200
	if req.Overlap != nil {
		overlap = *req.Overlap
	}
	if req.ChunkSize < 1 || overlap < 0 || overlap >= req.ChunkSize {
		common.Fail(c, http.StatusBadRequest, 10002, "overlap must be non-negative and smaller than chunk_size")
		return
	}

	common.OK(c, gin.H{"chunks": news.ChunkText(req.Text, req.ChunkSize, overlap)})
}
