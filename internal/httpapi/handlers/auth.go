package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"streamchat/internal/common"
)

type validateKeyReq struct {
	Provider string `json:"provider" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}

func (h *Handler) ValidateKey(c *gin.Context) {
	var req validateKeyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	p, err := h.Registry.Get(req.Provider, req.APIKey)
	if err != nil {
		common.OK(c, gin.H{"valid": false, "message": err.Error()})
		return
	}

	if p.ValidateKey(c.Request.Context()) {
		common.OK(c, gin.H{"valid": true, "message": "API key is valid"})
		return
	}
	common.OK(c, gin.H{"valid": false, "message": "API key is invalid or provider is unavailable"})
}
