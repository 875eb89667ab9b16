package management

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"leadflow/internal/constants"
	"leadflow/internal/logger"
	"leadflow/pkg/errors"
)

// ChangedByHeader names the caller making a management change. It is
// carried into rule change events.
const ChangedByHeader = "X-Changed-By"

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	status := errors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.Logger.WarnwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}

	c.JSON(status, errors.ToErrorResponse(err))
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err).WithDetail("message", err.Error())))
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	{
		rules := v1.Group("/automation/rules")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.GET("/:id", h.GetRule)
			rules.PATCH("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
		}

		templates := v1.Group("/automation/templates")
		{
			templates.GET("", h.ListTemplates)
			templates.POST("", h.CreateTemplate)
			templates.GET("/:id", h.GetTemplate)
			templates.PATCH("/:id", h.UpdateTemplate)
			templates.DELETE("/:id", h.DeleteTemplate)
		}

		v1.GET("/automation/runs", h.ListRuns)

		campaigns := v1.Group("/campaigns")
		{
			campaigns.GET("", h.ListCampaigns)
			campaigns.POST("", h.CreateCampaign)
			campaigns.GET("/:id", h.GetCampaign)
			campaigns.PATCH("/:id", h.UpdateCampaign)
			campaigns.DELETE("/:id", h.DeleteCampaign)

			campaigns.GET("/:id/leads", h.ListCampaignLeads)
			campaigns.POST("/:id/leads/:lead_id", h.AddCampaignLead)
			campaigns.DELETE("/:id/leads/:lead_id", h.RemoveCampaignLead)

			campaigns.GET("/:id/automations", h.ListAutomations)
			campaigns.POST("/:id/automations", h.CreateAutomation)
			campaigns.PATCH("/:id/automations/:automation_id/status", h.SetAutomationStatus)
			campaigns.DELETE("/:id/automations/:automation_id", h.DeleteAutomation)
		}
	}
}

// ListRules godoc
// @Summary      List automation rules
// @Tags         automation-rules
// @Produce      json
// @Success      200  {array}   automation.Rule
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /automation/rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.Service.ListRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rules)
}

// CreateRule godoc
// @Summary      Create an automation rule
// @Description  Conditions and actions are validated before the rule is stored
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        rule  body      CreateRuleRequest  true  "Rule"
// @Success      201   {object}  automation.Rule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      500   {object}  errors.ErrorResponse
// @Router       /automation/rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	rule, err := h.Service.CreateRule(changeContext(c), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// GetRule godoc
// @Summary      Get an automation rule
// @Tags         automation-rules
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  automation.Rule
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /automation/rules/{id} [get]
func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.Service.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// UpdateRule godoc
// @Summary      Update an automation rule
// @Tags         automation-rules
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "Rule ID"
// @Param        rule  body      UpdateRuleRequest  true  "Fields to change"
// @Success      200   {object}  automation.Rule
// @Failure      400   {object}  errors.ErrorResponse
// @Failure      404   {object}  errors.ErrorResponse
// @Router       /automation/rules/{id} [patch]
func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	rule, err := h.Service.UpdateRule(changeContext(c), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// DeleteRule godoc
// @Summary      Delete an automation rule
// @Tags         automation-rules
// @Param        id   path  string  true  "Rule ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /automation/rules/{id} [delete]
func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.Service.DeleteRule(changeContext(c), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListTemplates godoc
// @Summary      List email templates
// @Tags         email-templates
// @Produce      json
// @Success      200  {array}   models.EmailTemplate
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /automation/templates [get]
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.Service.ListTemplates(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, templates)
}

// CreateTemplate godoc
// @Summary      Create an email template
// @Tags         email-templates
// @Accept       json
// @Produce      json
// @Param        template  body      CreateTemplateRequest  true  "Template"
// @Success      201       {object}  models.EmailTemplate
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      409       {object}  errors.ErrorResponse
// @Router       /automation/templates [post]
func (h *Handler) CreateTemplate(c *gin.Context) {
	var req CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	tpl, err := h.Service.CreateTemplate(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

// GetTemplate godoc
// @Summary      Get an email template
// @Tags         email-templates
// @Produce      json
// @Param        id   path      string  true  "Template ID"
// @Success      200  {object}  models.EmailTemplate
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /automation/templates/{id} [get]
func (h *Handler) GetTemplate(c *gin.Context) {
	tpl, err := h.Service.GetTemplate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// UpdateTemplate godoc
// @Summary      Update an email template
// @Tags         email-templates
// @Accept       json
// @Produce      json
// @Param        id        path      string                 true  "Template ID"
// @Param        template  body      UpdateTemplateRequest  true  "Fields to change"
// @Success      200       {object}  models.EmailTemplate
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      404       {object}  errors.ErrorResponse
// @Router       /automation/templates/{id} [patch]
func (h *Handler) UpdateTemplate(c *gin.Context) {
	var req UpdateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	tpl, err := h.Service.UpdateTemplate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

// DeleteTemplate godoc
// @Summary      Delete an email template
// @Tags         email-templates
// @Param        id   path  string  true  "Template ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      409  {object}  errors.ErrorResponse
// @Router       /automation/templates/{id} [delete]
func (h *Handler) DeleteTemplate(c *gin.Context) {
	if err := h.Service.DeleteTemplate(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRuns godoc
// @Summary      List automation runs
// @Description  Most recent first
// @Tags         automation-runs
// @Produce      json
// @Param        kind           query     string  false  "rule or campaign"
// @Param        rule_id        query     string  false  "Filter by rule"
// @Param        automation_id  query     string  false  "Filter by campaign automation"
// @Param        lead_id        query     string  false  "Filter by lead"
// @Param        limit          query     int     false  "Maximum number of runs (1-1000)" default(100)
// @Success      200            {array}   models.AutomationRun
// @Failure      500            {object}  errors.ErrorResponse
// @Router       /automation/runs [get]
func (h *Handler) ListRuns(c *gin.Context) {
	runs, err := h.Service.ListRuns(c.Request.Context(), RunFilter{
		Kind:         c.Query("kind"),
		RuleID:       c.Query("rule_id"),
		AutomationID: c.Query("automation_id"),
		LeadID:       c.Query("lead_id"),
		Limit:        ParseLimit(c.Query("limit")),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

// ListCampaigns godoc
// @Summary      List campaigns
// @Tags         campaigns
// @Produce      json
// @Param        skip   query     int  false  "Offset" default(0)
// @Param        limit  query     int  false  "Page size (1-1000)" default(100)
// @Success      200    {array}   models.Campaign
// @Failure      500    {object}  errors.ErrorResponse
// @Router       /campaigns [get]
func (h *Handler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.Service.ListCampaigns(c.Request.Context(), ParseLimit(c.Query("limit")), ParseOffset(c.Query("skip")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

// CreateCampaign godoc
// @Summary      Create a campaign
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        campaign  body      CreateCampaignRequest  true  "Campaign"
// @Success      201       {object}  models.Campaign
// @Failure      400       {object}  errors.ErrorResponse
// @Router       /campaigns [post]
func (h *Handler) CreateCampaign(c *gin.Context) {
	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	campaign, err := h.Service.CreateCampaign(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// GetCampaign godoc
// @Summary      Get a campaign
// @Tags         campaigns
// @Produce      json
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {object}  models.Campaign
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /campaigns/{id} [get]
func (h *Handler) GetCampaign(c *gin.Context) {
	campaign, err := h.Service.GetCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// UpdateCampaign godoc
// @Summary      Update a campaign
// @Tags         campaigns
// @Accept       json
// @Produce      json
// @Param        id        path      string                 true  "Campaign ID"
// @Param        campaign  body      UpdateCampaignRequest  true  "Fields to change"
// @Success      200       {object}  models.Campaign
// @Failure      400       {object}  errors.ErrorResponse
// @Failure      404       {object}  errors.ErrorResponse
// @Router       /campaigns/{id} [patch]
func (h *Handler) UpdateCampaign(c *gin.Context) {
	var req UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	campaign, err := h.Service.UpdateCampaign(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// DeleteCampaign godoc
// @Summary      Delete a campaign
// @Description  Memberships and automations of the campaign are removed with it
// @Tags         campaigns
// @Param        id   path  string  true  "Campaign ID"
// @Success      204  "No Content"
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /campaigns/{id} [delete]
func (h *Handler) DeleteCampaign(c *gin.Context) {
	if err := h.Service.DeleteCampaign(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListCampaignLeads godoc
// @Summary      List campaign members
// @Tags         campaigns
// @Produce      json
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {array}   models.Lead
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /campaigns/{id}/leads [get]
func (h *Handler) ListCampaignLeads(c *gin.Context) {
	leads, err := h.Service.ListCampaignLeads(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, leads)
}

// AddCampaignLead godoc
// @Summary      Add a lead to a campaign
// @Description  Adding an existing member succeeds with added=false
// @Tags         campaigns
// @Produce      json
// @Param        id       path      string  true  "Campaign ID"
// @Param        lead_id  path      string  true  "Lead ID"
// @Success      200      {object}  map[string]interface{}
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /campaigns/{id}/leads/{lead_id} [post]
func (h *Handler) AddCampaignLead(c *gin.Context) {
	added, err := h.Service.AddCampaignLead(c.Request.Context(), c.Param("id"), c.Param("lead_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// RemoveCampaignLead godoc
// @Summary      Remove a lead from a campaign
// @Tags         campaigns
// @Param        id       path  string  true  "Campaign ID"
// @Param        lead_id  path  string  true  "Lead ID"
// @Success      204      "No Content"
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /campaigns/{id}/leads/{lead_id} [delete]
func (h *Handler) RemoveCampaignLead(c *gin.Context) {
	if err := h.Service.RemoveCampaignLead(c.Request.Context(), c.Param("id"), c.Param("lead_id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListAutomations godoc
// @Summary      List campaign automations
// @Tags         campaign-automations
// @Produce      json
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {array}   models.CampaignAutomation
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /campaigns/{id}/automations [get]
func (h *Handler) ListAutomations(c *gin.Context) {
	automations, err := h.Service.ListAutomations(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, automations)
}

// CreateAutomation godoc
// @Summary      Schedule a template for a campaign
// @Tags         campaign-automations
// @Accept       json
// @Produce      json
// @Param        id          path      string                   true  "Campaign ID"
// @Param        automation  body      CreateAutomationRequest  true  "Automation"
// @Success      201         {object}  models.CampaignAutomation
// @Failure      400         {object}  errors.ErrorResponse
// @Failure      404         {object}  errors.ErrorResponse
// @Router       /campaigns/{id}/automations [post]
func (h *Handler) CreateAutomation(c *gin.Context) {
	var req CreateAutomationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	a, err := h.Service.CreateAutomation(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// SetAutomationStatus godoc
// @Summary      Activate or pause a campaign automation
// @Tags         campaign-automations
// @Accept       json
// @Produce      json
// @Param        id             path      string                   true  "Campaign ID"
// @Param        automation_id  path      string                   true  "Automation ID"
// @Param        status         body      AutomationStatusRequest  true  "Status"
// @Success      200            {object}  models.CampaignAutomation
// @Failure      400            {object}  errors.ErrorResponse
// @Failure      404            {object}  errors.ErrorResponse
// @Router       /campaigns/{id}/automations/{automation_id}/status [patch]
func (h *Handler) SetAutomationStatus(c *gin.Context) {
	var req AutomationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	a, err := h.Service.SetAutomationStatus(c.Request.Context(), c.Param("id"), c.Param("automation_id"), *req.IsActive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAutomation godoc
// @Summary      Delete a campaign automation
// @Tags         campaign-automations
// @Param        id             path  string  true  "Campaign ID"
// @Param        automation_id  path  string  true  "Automation ID"
// @Success      204            "No Content"
// @Failure      404            {object}  errors.ErrorResponse
// @Router       /campaigns/{id}/automations/{automation_id} [delete]
func (h *Handler) DeleteAutomation(c *gin.Context) {
	if err := h.Service.DeleteAutomation(c.Request.Context(), c.Param("id"), c.Param("automation_id")); err != nil {
		h.HandleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func changeContext(c *gin.Context) context.Context {
	return WithChangedBy(c.Request.Context(), c.GetHeader(ChangedByHeader))
}

// ParseLimit reads a page size, falling back to the default when the value
// is missing or out of range.
func ParseLimit(limitStr string) int {
	if limitStr == "" {
		return constants.DefaultLimit
	}
	parsed, err := strconv.Atoi(limitStr)
	if err != nil || parsed <= 0 || parsed > constants.MaxLimit {
		return constants.DefaultLimit
	}
	return parsed
}

func ParseOffset(offsetStr string) int {
	parsed, err := strconv.Atoi(offsetStr)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
