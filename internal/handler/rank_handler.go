package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursemark/coursemark-api/internal/service"
	appErrors "github.com/coursemark/coursemark-api/pkg/errors"
	"github.com/coursemark/coursemark-api/pkg/response"
)

// RankHandler exposes the cohort rank endpoint.
type RankHandler struct {
	ranks *service.RankService
}

// NewRankHandler constructs handler.
func NewRankHandler(ranks *service.RankService) *RankHandler {
	return &RankHandler{ranks: ranks}
}

// Rank godoc
// @Summary Percentile rank of an assessment within its course cohort
// @Tags Ranks
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assessments/{id}/rank [get]
func (h *RankHandler) Rank(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	rank, err := h.ranks.Rank(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rank, nil)
}
