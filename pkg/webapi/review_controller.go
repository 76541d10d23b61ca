package webapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/datican/datarepo/pkg/webapi/apimiddleware"
	"github.com/datican/datarepo/pkg/workflow"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ReviewController struct {
	reviewService *workflow.ReviewService
}

func NewReviewController(reviewService *workflow.ReviewService) *ReviewController {
	return &ReviewController{reviewService: reviewService}
}

type reviewBody struct {
	Action  string `json:"action"`
	Comment string `json:"comment"`
}

// ManagerReview handles the data manager tier:
// action=recommend|reject|request_changes.
func (c *ReviewController) ManagerReview(ctx echo.Context) error {
	return c.applyAction(ctx, c.reviewService.ManagerReview)
}

// DirectorDecision handles the director tier:
// action=approve|reject|return_to_manager.
func (c *ReviewController) DirectorDecision(ctx echo.Context) error {
	return c.applyAction(ctx, c.reviewService.DirectorDecision)
}

// AdminOverride forces approve|forward|reject from any non-terminal state.
func (c *ReviewController) AdminOverride(ctx echo.Context) error {
	return c.applyAction(ctx, c.reviewService.AdminOverride)
}

type reviewFn func(requestID int, actor *model.User, action workflow.Action, comment string) (*workflow.Outcome, error)

func (c *ReviewController) applyAction(ctx echo.Context, apply reviewFn) error {
	user := apimiddleware.GetUser(ctx)

	requestID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	var body reviewBody
	if err := ctx.Bind(&body); err != nil {
		return err
	}

	outcome, err := apply(requestID, user, workflow.Action(body.Action), body.Comment)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return echo.ErrNotFound
	case errors.Is(err, workflow.ErrNotAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, "you may not perform this action")
	case errors.Is(err, workflow.ErrIllegalTransition):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, workflow.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	resp := map[string]interface{}{
		"request": outcome.Request,
		"from":    outcome.Result.From,
		"to":      outcome.Result.To,
	}
	if outcome.Result.Warning != "" {
		resp["warning"] = outcome.Result.Warning
	}

	return ctx.JSON(http.StatusOK, resp)
}

// ResendNotification re-sends the pending staff notification for a
// request, the manual recovery path for a lost email.
func (c *ReviewController) ResendNotification(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	requestID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	err = c.reviewService.ResendStaffNotification(requestID, user)

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return echo.ErrNotFound
	case errors.Is(err, workflow.ErrNotAuthorized):
		return echo.NewHTTPError(http.StatusForbidden, "staff only")
	case errors.Is(err, workflow.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, "failed to resend notification")
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "notification resent",
	})
}
