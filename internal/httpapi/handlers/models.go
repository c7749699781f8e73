package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streamchat/internal/common"
)

type listModelsReq struct {
	Provider string `json:"provider" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}

func (h *Handler) ListModels(c *gin.Context) {
	var req listModelsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	p, err := h.Registry.Get(req.Provider, req.APIKey)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 40002, err.Error())
		return
	}

	models, err := p.ListModels(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to list models")
		return
	}
	common.OK(c, gin.H{"models": models})
}
