package webapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/datican/datarepo/pkg/webapi/apimiddleware"
	"github.com/datican/datarepo/pkg/workflow"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type RequestController struct {
	reviewService   *workflow.ReviewService
	datasetStor     stor.DatasetStor
	dataRequestStor stor.DataRequestStor
}

func NewRequestController(reviewService *workflow.ReviewService, datasetStor stor.DatasetStor,
	dataRequestStor stor.DataRequestStor) *RequestController {
	return &RequestController{
		reviewService:   reviewService,
		datasetStor:     datasetStor,
		dataRequestStor: dataRequestStor,
	}
}

func (c *RequestController) SubmitRequest(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	datasetID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dataset id")
	}

	var body struct {
		Institution        string `json:"institution"`
		ProjectTitle       string `json:"project_title"`
		ProjectDescription string `json:"project_description"`
	}

	if err := ctx.Bind(&body); err != nil {
		return err
	}

	dataset, err := c.datasetStor.GetDatasetByID(datasetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.ErrNotFound
		}
		return err
	}

	req, err := c.reviewService.Submit(user, dataset, workflow.Submission{
		Institution:        body.Institution,
		ProjectTitle:       body.ProjectTitle,
		ProjectDescription: body.ProjectDescription,
	})

	switch {
	case errors.Is(err, workflow.ErrDuplicateRequest):
		return echo.NewHTTPError(http.StatusConflict, "you already have a pending request for this dataset")
	case errors.Is(err, workflow.ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	return ctx.JSON(http.StatusCreated, req)
}

func (c *RequestController) MyRequests(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	requests, err := c.dataRequestStor.ListRequestsForUser(user.ID)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, requests)
}

func (c *RequestController) GetRequestStatus(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	requestID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	req, err := c.dataRequestStor.GetDataRequestByID(requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.ErrNotFound
		}
		return err
	}

	// Owners see their own requests; staff see everything.
	if req.UserID != user.ID && !user.IsStaff() {
		return echo.NewHTTPError(http.StatusForbidden, "not your request")
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"request":             req,
		"can_download":        req.CanDownload(),
		"remaining_downloads": req.RemainingDownloads(),
	})
}
