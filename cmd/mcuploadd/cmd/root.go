package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/materials-commons/mcupload/pkg/clog"
	"github.com/materials-commons/mcupload/pkg/config"
	"github.com/materials-commons/mcupload/pkg/mcdb"
	"github.com/materials-commons/mcupload/pkg/mcdb/stor"
	"github.com/materials-commons/mcupload/pkg/mcupload/ingest"
	"github.com/materials-commons/mcupload/pkg/tracing"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const version = "1.0.0"

var cfgFile string

// rootCmd runs the upload server when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "mcuploadd",
	Short: "Run the mcupload folder upload server",
	Long: `mcuploadd accepts folder uploads as multipart requests, stores the files
under UPLOAD_DIR and records them in the database.`,
	Run: func(cmd *cobra.Command, args []string) {
		c := loadConfig()

		limits, err := ingest.LimitsFromConfig(c)
		if err != nil {
			log.Fatalf("Invalid upload limits: %s", err)
		}

		if err := os.MkdirAll(limits.UploadDir, 0755); err != nil {
			log.Fatalf("Unable to create upload directory %s: %s", limits.UploadDir, err)
		}
		log.Infof("Upload Dir: %s", limits.UploadDir)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownTracer, err := tracing.InitTracer(ctx, "mcuploadd", version, c.GetKey("OTEL_EXPORTER_OTLP_ENDPOINT"))
		if err != nil {
			log.Fatalf("Unable to initialize tracing: %s", err)
		}

		db := mcdb.MustConnectToDB(c)
		if err := mcdb.RunMigrations(db); err != nil {
			log.Fatalf("Unable to migrate database: %s", err)
		}
		stor.SetTxRetry(c.GetIntKeyWithDefault("MCDB_TX_RETRY", 3))

		e := echo.New()
		e.HideBanner = true
		e.HidePort = true
		// Backstop for connections that stall outside a handler. Uploads are
		// bounded by UPLOAD_TIMEOUT inside the handler.
		e.Server.ReadHeaderTimeout = 30 * time.Second
		e.Server.ReadTimeout = limits.UploadTimeout + 30*time.Second
		e.Use(middleware.Recover())
		e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware("mcuploadd")))

		setupRoutes(e, RouteOpts{
			limits:    limits,
			stors:     stor.NewGormStors(db, c.GetKeyWithDefault("UPLOAD_URL_PREFIX", stor.DefaultURLPrefix)),
			jwtSecret: []byte(c.GetKey("JWT_SECRET")),
		})

		port := c.GetKeyWithDefault("MCUPLOADD_PORT", "1353")
		go func() {
			log.Infof("Listening on port %s", port)
			if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Unable to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Infof("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Server forced to shutdown: %v", err)
		}

		if err := shutdownTracer(shutdownCtx); err != nil {
			log.Errorf("Error shutting down tracer: %v", err)
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file, when not set MC_DOTENV_PATH and the environment are used")
}

// loadConfig reads the configuration and sets up logging from it.
func loadConfig() config.Configer {
	var c config.Configer
	if cfgFile != "" {
		c = config.MustLoadFromFile(cfgFile)
	} else {
		c = config.MustLoadFromMCDotenv()
	}

	if err := clog.Setup(os.Stdout, c.GetKey("LOG_FORMAT"), c.GetKey("LOG_LEVEL")); err != nil {
		log.Fatalf("Invalid logging configuration: %s", err)
	}

	return c
}
