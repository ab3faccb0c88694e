package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/in"
)

type CheckoutController struct {
	useCase in.CheckoutUseCase
}

func NewCheckoutController(useCase in.CheckoutUseCase) *CheckoutController {
	return &CheckoutController{
		useCase: useCase,
	}
}

func (c *CheckoutController) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/checkout")
	{
		api.POST("/sessions", c.startSession)
		api.GET("/sessions/:id", c.getSession)
		api.DELETE("/sessions/:id", c.endSession)
		api.PUT("/sessions/:id/selection", c.selectDate)
		api.POST("/sessions/:id/advance", c.advance)
	}
}

type StartSessionRequest struct {
	FlowID string `json:"flowId" binding:"required"`
}

type SelectDateRequest struct {
	Date string `json:"date"`
}

func (c *CheckoutController) startSession(ctx *gin.Context) {
	var req StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := c.useCase.StartSession(ctx.Request.Context(), req.FlowID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, state)
}

func (c *CheckoutController) getSession(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	state, err := c.useCase.GetSession(ctx.Request.Context(), sessionID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *CheckoutController) endSession(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	if err := c.useCase.EndSession(ctx.Request.Context(), sessionID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// selectDate никогда не отвечает ошибкой на некорректную дату:
// такая дата просто переводит гейт в invalid
func (c *CheckoutController) selectDate(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	var req SelectDateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := c.useCase.SelectDate(ctx.Request.Context(), sessionID, req.Date)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (c *CheckoutController) advance(ctx *gin.Context) {
	sessionID, ok := sessionIDParam(ctx)
	if !ok {
		return
	}

	decision, err := c.useCase.Advance(ctx.Request.Context(), sessionID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, decision)
}
