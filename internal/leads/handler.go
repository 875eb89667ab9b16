package leads

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadflow/internal/logger"
	"leadflow/internal/management"
	"leadflow/pkg/errors"
)

type Handler struct {
	management.BaseHandler
	service Service
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: management.BaseHandler{Logger: log},
		service:     service,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	leads := router.Group("/api/v1/leads")
	{
		leads.GET("", h.ListLeads)
		leads.POST("", h.CreateLead)
		leads.GET("/:id", h.GetLead)
		leads.PATCH("/:id", h.UpdateLead)
		leads.DELETE("/:id", h.DeleteLead)
		leads.GET("/:id/events", h.ListEvents)
		leads.POST("/:id/events/:event_type", h.TrackEvent)
	}
}

func (h *Handler) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err).WithDetail("message", err.Error())))
}

// ListLeads godoc
// @Summary      List leads
// @Tags         leads
// @Produce      json
// @Param        skip   query     int  false  "Offset" default(0)
// @Param        limit  query     int  false  "Page size (1-1000)" default(100)
// @Success      200    {array}   models.Lead
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /leads [get]
func (h *Handler) ListLeads(c *gin.Context) {
	leads, err := h.service.ListLeads(c.Request.Context(), management.ParseLimit(c.Query("limit")), management.ParseOffset(c.Query("skip")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, leads)
}

// CreateLead godoc
// @Summary      Create a lead
// @Description  Runs lead_created automation rules after the lead is stored
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        lead  body      CreateLeadRequest  true  "Lead"
// @Success      201   {object}  LeadResult
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      409   {object}  errors.ErrorResponse
// @Router       /leads [post]
func (h *Handler) CreateLead(c *gin.Context) {
	var req CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	result, err := h.service.CreateLead(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetLead godoc
// @Summary      Get a lead
// @Tags         leads
// @Produce      json
// @Param        id   path      string  true  "Lead ID"
// @Success      200  {object}  models.Lead
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /leads/{id} [get]
func (h *Handler) GetLead(c *gin.Context) {
	lead, err := h.service.GetLead(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, lead)
}

// UpdateLead godoc
// @Summary      Update a lead
// @Description  Runs lead_updated rules, and score_changed rules when the score changed
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Lead ID"
// @Param        lead  body      UpdateLeadRequest  true  "Changed fields"
// @Success      200   {object}  LeadResult
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Router       /leads/{id} [patch]
func (h *Handler) UpdateLead(c *gin.Context) {
	var req UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	result, err := h.service.UpdateLead(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// DeleteLead godoc
// @Summary      Delete a lead
// @Tags         leads
// @Param        id   path  string  true  "Lead ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /leads/{id} [delete]
func (h *Handler) DeleteLead(c *gin.Context) {
	if err := h.service.DeleteLead(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// TrackEvent godoc
// @Summary      Track a lead event
// @Description  Appends to the activity log and runs event_occurred rules
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        id          path      string             true   "Lead ID"
// @Param        event_type  path      string             true   "Event type"
// @Param        event       body      TrackEventRequest  false  "Event properties"
// @Success      200         {object}  EventResult
// @Failure      404         {object}  errors.ErrorResponse
// @Router       /leads/{id}/events/{event_type} [post]
func (h *Handler) TrackEvent(c *gin.Context) {
	var req TrackEventRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindError(c, err)
			return
		}
	}

	result, err := h.service.TrackEvent(c.Request.Context(), c.Param("id"), c.Param("event_type"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListEvents godoc
// @Summary      List a lead's activity
// @Tags         leads
// @Produce      json
// @Param        id          path      string  true   "Lead ID"
// @Param        event_type  query     string  false  "Only this event type"
// @Param        limit       query     int     false  "Page size (1-1000)" default(100)
// @Success      200         {array}   models.LeadEvent
// @Failure      404         {object}  errors.ErrorResponse
// @Router       /leads/{id}/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.service.ListEvents(c.Request.Context(), c.Param("id"), c.Query("event_type"), management.ParseLimit(c.Query("limit")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}
