package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/json_types"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/in"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
	"github.com/suchimauz/delivery-date-availability/internal/utils"
)

type RuleEditorController struct {
	useCase in.RuleEditorUseCase
	cfg     *config.Config
	logger  out.LoggerPort
}

func NewRuleEditorController(useCase in.RuleEditorUseCase, cfg *config.Config, logger out.LoggerPort) *RuleEditorController {
	return &RuleEditorController{
		useCase: useCase,
		cfg:     cfg,
		logger:  logger.WithModule("RuleEditorController"),
	}
}

func (c *RuleEditorController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/admin")
	api.Use(basicAuth(c.cfg))
	{
		api.POST("/editor", c.openEditor)
		api.GET("/editor/:id", c.getEditor)
		api.DELETE("/editor/:id", c.closeEditor)
		api.POST("/editor/:id/rules", c.addRule)
		api.PUT("/editor/:id/rules", c.replaceRule)
		api.DELETE("/editor/:id/rules", c.removeRule)
		api.POST("/editor/:id/days/:day/toggle", c.toggleDay)
		api.POST("/editor/:id/save", c.save)
		api.POST("/editor/:id/reset", c.reset)
		api.GET("/editor/:id/blocked-days", c.blockedDays)
	}
}

// RuleRequest это правило в том виде, в каком его присылает админка.
// Kind выбирает, какие поля читаются.
type RuleRequest struct {
	Kind      domain.RuleKind `json:"kind" binding:"required"`
	Day       *int            `json:"day"`
	Disabled  *bool           `json:"disabled"`
	StartDate string          `json:"startDate"`
	EndDate   string          `json:"endDate"`
}

func (r RuleRequest) toRule() (domain.Rule, error) {
	switch r.Kind {
	case domain.RuleKindDay:
		if r.Day == nil {
			return domain.Rule{}, fmt.Errorf("%w: day is required", domain.ErrInvalidRule)
		}
		disabled := true
		if r.Disabled != nil {
			disabled = *r.Disabled
		}
		dayRule := domain.NewDayRule(time.Weekday(*r.Day), disabled)
		if err := dayRule.Validate(); err != nil {
			return domain.Rule{}, err
		}
		return domain.DayRuleOf(dayRule), nil

	case domain.RuleKindDate:
		start, err := json_types.ParseDate(r.StartDate)
		if err != nil {
			return domain.Rule{}, fmt.Errorf("%w: startDate: %s", domain.ErrInvalidRule, err.Error())
		}

		var end *json_types.Date
		if strings.TrimSpace(r.EndDate) != "" {
			parsed, err := json_types.ParseDate(r.EndDate)
			if err != nil {
				return domain.Rule{}, fmt.Errorf("%w: endDate: %s", domain.ErrInvalidRule, err.Error())
			}
			end = &parsed
		}

		dateRule, err := domain.NewDateRule(start, end)
		if err != nil {
			return domain.Rule{}, err
		}
		return domain.DateRuleOf(dateRule), nil
	}

	return domain.Rule{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidRule, r.Kind)
}

func (c *RuleEditorController) bindRule(ctx *gin.Context) (domain.Rule, bool) {
	var req RuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return domain.Rule{}, false
	}

	rule, err := req.toRule()
	if err != nil {
		respondError(ctx, err)
		return domain.Rule{}, false
	}
	return rule, true
}

func (c *RuleEditorController) openEditor(ctx *gin.Context) {
	state, err := c.useCase.OpenEditor(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, state)
}

func (c *RuleEditorController) getEditor(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	state, err := c.useCase.GetEditor(ctx.Request.Context(), sessionID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *RuleEditorController) closeEditor(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	if err := c.useCase.CloseEditor(ctx.Request.Context(), sessionID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (c *RuleEditorController) addRule(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}
	rule, ok := c.bindRule(ctx)
	if !ok {
		return
	}

	state, err := c.useCase.AddRule(ctx.Request.Context(), sessionID, rule)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *RuleEditorController) replaceRule(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	identifier := ctx.Query("identifier")
	if identifier == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "identifier query parameter is required"})
		return
	}

	rule, ok := c.bindRule(ctx)
	if !ok {
		return
	}

	state, err := c.useCase.ReplaceRule(ctx.Request.Context(), sessionID, identifier, rule)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *RuleEditorController) removeRule(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	identifier := ctx.Query("identifier")
	if identifier == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "identifier query parameter is required"})
		return
	}

	state, err := c.useCase.RemoveRule(ctx.Request.Context(), sessionID, identifier)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *RuleEditorController) toggleDay(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	weekday, err := utils.ParseWeekday(ctx.Param("day"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := c.useCase.ToggleDay(ctx.Request.Context(), sessionID, weekday)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *RuleEditorController) save(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	state, err := c.useCase.Save(ctx.Request.Context(), sessionID)
	if err != nil {
		c.logger.Error("editor.save.failed", out.LogFields{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *RuleEditorController) reset(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	state, err := c.useCase.Reset(ctx.Request.Context(), sessionID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *RuleEditorController) blockedDays(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	days, err := c.useCase.BlockedDays(ctx.Request.Context(), sessionID, ctx.Query("exclude"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"days": days})
}
