/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/datican/datarepo/pkg/config"
	"github.com/datican/datarepo/pkg/dlog"
	"github.com/datican/datarepo/pkg/downloads"
	"github.com/datican/datarepo/pkg/drdb"
	"github.com/datican/datarepo/pkg/drdb/stor"
	"github.com/datican/datarepo/pkg/mailer"
	"github.com/datican/datarepo/pkg/objstore"
	"github.com/datican/datarepo/pkg/webapi/apimiddleware"
	"github.com/datican/datarepo/pkg/workflow"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "drepod",
	Short: "Run the data repository portal API server",
	Long: `drepod serves the dataset catalog and the access request workflow:
browsing and rating datasets, submitting access requests, the manager and
director review steps, and quota-limited presigned download links.`,
	Run: func(cmd *cobra.Command, args []string) {
		config.MustLoadFromDotenv()
		dlog.Setup(config.GetKeyWithDefault("DREPO_LOG_LEVEL", "info"))

		if logFile := config.GetKey("DREPO_LOG_FILE"); logFile != "" {
			if err := dlog.SetOutputToFile(logFile); err != nil {
				log.Fatalf("Unable to open log file %s: %s", logFile, err)
			}
		}

		db := drdb.MustConnectToDB()
		if err := drdb.RunMigrations(db); err != nil {
			log.Fatalf("Unable to run migrations: %s", err)
		}

		stors := stor.NewGormStors(db)

		issuer, err := objstore.NewMinioLinkIssuer(objstore.MinioConfig{
			Endpoint:  config.MustGetKey("S3_ENDPOINT"),
			AccessKey: config.MustGetKey("S3_ACCESS_KEY"),
			SecretKey: config.MustGetKey("S3_SECRET_KEY"),
			Bucket:    config.MustGetKey("S3_BUCKET"),
			UseSSL:    config.GetBoolKeyWithDefault("S3_USE_SSL", true),
		})
		if err != nil {
			log.Fatalf("Unable to create object store client: %s", err)
		}

		verifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := issuer.VerifyBucket(verifyCtx); err != nil {
			log.Fatalf("Object store bucket check failed: %s", err)
		}

		smtpMailer := mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     config.MustGetKey("SMTP_HOST"),
			Port:     config.GetIntKeyWithDefault("SMTP_PORT", 587),
			Username: config.GetKey("SMTP_USERNAME"),
			Password: config.GetKey("SMTP_PASSWORD"),
			From:     config.MustGetKey("SMTP_FROM"),
		})

		siteName := config.GetKeyWithDefault("DREPO_SITE_NAME", "Data Repository Portal")
		notifier := mailer.NewEmailNotifier(smtpMailer, stors.NotificationStor, siteName)
		reviewService := workflow.NewReviewService(stors, notifier)
		downloadService := downloads.NewDownloadService(stors, issuer)

		apikeyCache := apimiddleware.NewAPIKeyCache(stors.UserStor)

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		e.Use(middleware.Recover())

		setupRoutes(e, RouteOpts{
			stors:           stors,
			reviewService:   reviewService,
			downloadService: downloadService,
			getUserByAPIKey: apikeyCache.GetUserByAPIKey,
		})

		port := config.GetKeyWithDefault("DREPO_PORT", "1360")
		log.Infof("Starting drepod on port %s", port)
		if err := e.Start(":" + port); err != nil {
			log.Fatalf("Unable to start server: %v", err)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Here you will define your flags and configuration settings.
	// Cobra supports persistent flags, which, if defined here,
	// will be global for your application.

	// rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.drepod.yaml)")

	// Cobra also supports local flags, which will only run
	// when this action is called directly.
	rootCmd.Flags().BoolP("toggle", "t", false, "Help message for toggle")
}
