package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coursemark/coursemark-api/internal/service"
	"github.com/coursemark/coursemark-api/pkg/response"
)

// UniversityHandler exposes the universities reference list.
type UniversityHandler struct {
	universities *service.UniversityService
}

// NewUniversityHandler constructs handler.
func NewUniversityHandler(universities *service.UniversityService) *UniversityHandler {
	return &UniversityHandler{universities: universities}
}

// List godoc
// @Summary List universities for registration
// @Tags Universities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /universities [get]
func (h *UniversityHandler) List(c *gin.Context) {
	universities, err := h.universities.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, universities, nil)
}
