package webapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/datican/datarepo/pkg/downloads"
	"github.com/datican/datarepo/pkg/objstore"
	"github.com/datican/datarepo/pkg/webapi/apimiddleware"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type DownloadController struct {
	downloadService *downloads.DownloadService
}

func NewDownloadController(downloadService *downloads.DownloadService) *DownloadController {
	return &DownloadController{downloadService: downloadService}
}

// GetDatasetFiles lists the downloadable parts. Listing never consumes
// quota.
func (c *DownloadController) GetDatasetFiles(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	datasetID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dataset id")
	}

	parts, err := c.downloadService.ListParts(user, datasetID)
	if err != nil {
		return downloadError(err)
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"dataset_id": datasetID,
		"parts":      parts,
	})
}

// GetPartURL returns a presigned URL for one part without consuming
// quota; the client confirms the download separately.
func (c *DownloadController) GetPartURL(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	datasetID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dataset id")
	}

	partNumber, err := strconv.Atoi(ctx.Param("part"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid part number")
	}

	url, err := c.downloadService.PartURL(ctx.Request().Context(), user, datasetID, partNumber, expiryParam(ctx))
	if err != nil {
		return downloadError(err)
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"dataset_id":  datasetID,
		"part_number": partNumber,
		"url":         url,
	})
}

// RecordDownload consumes one quota unit for the caller's request.
func (c *DownloadController) RecordDownload(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	requestID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request id")
	}

	req, err := c.downloadService.RecordDownload(user, requestID)
	if err != nil {
		return downloadError(err)
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"download_count":      req.DownloadCount,
		"remaining_downloads": req.RemainingDownloads(),
		"last_download":       req.LastDownload,
	})
}

// DownloadPart records a download and redirects to the signed URL.
func (c *DownloadController) DownloadPart(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	datasetID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dataset id")
	}

	partNumber, err := strconv.Atoi(ctx.Param("part"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid part number")
	}

	url, err := c.downloadService.DownloadPart(ctx.Request().Context(), user, datasetID, partNumber, expiryParam(ctx))
	if err != nil {
		return downloadError(err)
	}

	return ctx.Redirect(http.StatusSeeOther, url)
}

// DownloadScript returns a shell script of presigned URLs covering every
// part, counting as a single download.
func (c *DownloadController) DownloadScript(ctx echo.Context) error {
	user := apimiddleware.GetUser(ctx)

	datasetID, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid dataset id")
	}

	script, err := c.downloadService.BulkScript(ctx.Request().Context(), user, datasetID, expiryParam(ctx))
	if err != nil {
		return downloadError(err)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="download.sh"`)
	return ctx.Blob(http.StatusOK, "text/x-shellscript", []byte(script))
}

// expiryParam reads an optional expires_in seconds query param. Values
// outside the allowed window get clamped downstream.
func expiryParam(ctx echo.Context) time.Duration {
	seconds, err := strconv.Atoi(ctx.QueryParam("expires_in"))
	if err != nil || seconds <= 0 {
		return objstore.DefaultLinkExpiry
	}

	return time.Duration(seconds) * time.Second
}

func downloadError(err error) error {
	switch {
	case errors.Is(err, downloads.ErrNoEntitlement):
		return echo.NewHTTPError(http.StatusForbidden, "no approved request with downloads remaining")
	case errors.Is(err, downloads.ErrNoSuchPart):
		return echo.NewHTTPError(http.StatusNotFound, "no such dataset part")
	case errors.Is(err, objstore.ErrFileUnavailable):
		return echo.NewHTTPError(http.StatusBadGateway, "file unavailable")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return echo.ErrNotFound
	default:
		return err
	}
}
