package webapi

import (
	"net/http"
	"strconv"

	"github.com/datican/datarepo/pkg/drdb/model"
	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/datican/datarepo/pkg/webapi/apimiddleware"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type DatasetController struct {
	datasetStor     stor.DatasetStor
	dataRequestStor stor.DataRequestStor
}

func NewDatasetController(datasetStor stor.DatasetStor, dataRequestStor stor.DataRequestStor) *DatasetController {
	return &DatasetController{datasetStor: datasetStor, dataRequestStor: dataRequestStor}
}

const defaultPageSize = 12

func (c *DatasetController) ListDatasets(ctx echo.Context) error {
	filter := stor.DatasetFilter{
		Query:    ctx.QueryParam("q"),
		Category: ctx.QueryParam("category"),
		Task:     ctx.QueryParam("task"),
		Format:   ctx.QueryParam("format"),
		Limit:    defaultPageSize,
	}

	if page, err := strconv.Atoi(ctx.QueryParam("page")); err == nil && page > 1 {
		filter.Offset = (page - 1) * defaultPageSize
	}

	datasets, err := c.datasetStor.ListDatasets(filter)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"datasets": datasets,
		"count":    len(datasets),
	})
}

type datasetDetailResp struct {
	Dataset   *model.Dataset `json:"dataset"`
	TotalSize int64          `json:"total_size"`
	FileCount int            `json:"file_count"`

	// Filled in for authenticated callers.
	Request     *model.DataRequest `json:"request,omitempty"`
	CanDownload bool               `json:"can_download"`
}

func (c *DatasetController) GetDataset(ctx echo.Context) error {
	datasetID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dataset id")
	}

	dataset, err := c.datasetStor.GetDatasetByID(datasetID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.ErrNotFound
		}
		return err
	}

	resp := datasetDetailResp{
		Dataset:   dataset,
		TotalSize: dataset.GetTotalSize(),
		FileCount: dataset.GetFileCount(),
	}

	if user := apimiddleware.GetUser(ctx); user != nil {
		if req, err := c.dataRequestStor.GetActiveRequestForUserAndDataset(user.ID, dataset.ID); err == nil {
			resp.Request = req
		} else if req, err := c.dataRequestStor.GetApprovedRequestForUserAndDataset(user.ID, dataset.ID); err == nil {
			resp.Request = req
			resp.CanDownload = req.CanDownload()
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}

func (c *DatasetController) RateDataset(ctx echo.Context) error {
	datasetID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dataset id")
	}

	var req struct {
		Score float64 `json:"score"`
	}

	if err := ctx.Bind(&req); err != nil {
		return err
	}

	if req.Score < 0 || req.Score > 10 {
		return echo.NewHTTPError(http.StatusBadRequest, "score must be between 0 and 10")
	}

	dataset, err := c.datasetStor.AddRating(datasetID, req.Score)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return echo.ErrNotFound
		}
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"rating":       dataset.Rating,
		"rating_count": dataset.RatingCount,
	})
}
