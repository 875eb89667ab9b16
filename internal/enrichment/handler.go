package enrichment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadflow/internal/logger"
	"leadflow/internal/management"
)

type Handler struct {
	management.BaseHandler
	service *Service
}

func NewHandler(service *Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: management.BaseHandler{Logger: log},
		service:     service,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	router.POST("/api/v1/leads/:id/enrich", h.EnrichLead)
}

// EnrichLead godoc
// @Summary      Enrich a lead with company data
// @Description  Looks up the lead's email domain and stores the result under data.company
// @Tags         leads
// @Produce      json
// @Param        id   path      string  true  "Lead ID"
// @Success      200  {object}  Result
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /leads/{id}/enrich [post]
func (h *Handler) EnrichLead(c *gin.Context) {
	result, err := h.service.EnrichLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
