package segments

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
	router.GET("/api/v1/segments", h.ListTypes)
	router.GET("/api/v1/segments/:type", h.GetCounts)
}

// ListTypes godoc
// @Summary      List segment types and their predicates
// @Tags         segments
// @Produce      json
// @Success      200  {array}  Type
// @Router       /segments [get]
func (h *Handler) ListTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.Types())
}

// GetCounts godoc
// @Summary      Count leads per segment
// @Tags         segments
// @Produce      json
// @Param        type  path      string  true  "Segment type (lead_score, company_size, engagement)"
// @Success      200   {object}  Counts
// @Failure      400   {object}  errors.ErrorResponse
// @Router       /segments/{type} [get]
func (h *Handler) GetCounts(c *gin.Context) {
	counts, err := h.service.Counts(c.Request.Context(), c.Param("type"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, counts)
}
