package cmd

import (
	"github.com/datican/datarepo/pkg/downloads"
	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/datican/datarepo/pkg/webapi"
	"github.com/datican/datarepo/pkg/webapi/apimiddleware"
	"github.com/datican/datarepo/pkg/workflow"
	"github.com/labstack/echo/v4"
)

type RouteOpts struct {
	stors           *stor.Stors
	reviewService   *workflow.ReviewService
	downloadService *downloads.DownloadService
	getUserByAPIKey apimiddleware.GetUserByAPIKeyFN
}

func setupRoutes(e *echo.Echo, opts RouteOpts) {
	auth := apimiddleware.APIKeyAuth(apimiddleware.APIKeyConfig{
		Keyname:         "X-API-Token",
		GetUserByAPIKey: opts.getUserByAPIKey,
	})

	g := e.Group("/api", auth)

	datasetController := webapi.NewDatasetController(opts.stors.DatasetStor, opts.stors.DataRequestStor)
	g.GET("/datasets", datasetController.ListDatasets)
	g.GET("/datasets/:id", datasetController.GetDataset)
	g.POST("/datasets/:id/rate", datasetController.RateDataset)

	requestController := webapi.NewRequestController(opts.reviewService, opts.stors.DatasetStor, opts.stors.DataRequestStor)
	g.POST("/datasets/:id/request", requestController.SubmitRequest)
	g.GET("/requests/mine", requestController.MyRequests)
	g.GET("/requests/:id", requestController.GetRequestStatus)

	reviewController := webapi.NewReviewController(opts.reviewService)
	g.POST("/requests/:id/review", reviewController.ManagerReview, apimiddleware.RequireDataManager)
	g.POST("/requests/:id/decision", reviewController.DirectorDecision, apimiddleware.RequireDirector)
	g.POST("/requests/:id/override", reviewController.AdminOverride, apimiddleware.RequireAdmin)
	g.POST("/requests/:id/resend-notification", reviewController.ResendNotification, apimiddleware.RequireStaff)

	downloadController := webapi.NewDownloadController(opts.downloadService)
	g.GET("/datasets/:id/files", downloadController.GetDatasetFiles)
	g.GET("/datasets/:id/parts/:part/url", downloadController.GetPartURL)
	g.POST("/requests/:id/record-download", downloadController.RecordDownload)

	// Browser-facing download routes sit outside /api but still carry the
	// token, typically as a query param.
	d := e.Group("/datasets", auth)
	d.GET("/:id/download/part/:part", downloadController.DownloadPart)
	d.GET("/:id/download/script", downloadController.DownloadScript)
}
