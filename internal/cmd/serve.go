package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/CyrilCartoux/watch-pros-sub002/internal/handler"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/imaging"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/listing"
	mid "github.com/CyrilCartoux/watch-pros-sub002/internal/middleware"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/repository"
	"github.com/CyrilCartoux/watch-pros-sub002/internal/seller"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/config"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/database"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/jwtutil"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/logger"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/mailer"
	"github.com/CyrilCartoux/watch-pros-sub002/pkg/storage"
	"github.com/CyrilCartoux/watch-pros-sub002/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API. The server connects to PostgreSQL, object storage
and SMTP, exposes /health and /metrics, and shuts down gracefully on
SIGINT or SIGTERM after pending notification emails are sent.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	log := logger.GetLogger()
	defer logger.Sync()

	log.Info("Starting watch-pros", cfg.LogConfig()...)

	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", cfg.Metrics.Prefix))

	db, err := database.InitDB(ctx, &cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close(db)

	blobs, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	mail, err := mailer.NewFromConfig(cfg.Mail)
	if err != nil {
		return err
	}
	verifier, err := jwtutil.NewVerifier(ctx, cfg.JWT)
	if err != nil {
		return err
	}

	sellerSvc, e := newServer(cfg, db, blobs, mail, verifier)

	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	sellerSvc.Wait()
	log.Info("Server stopped")
	return nil
}

// newServer wires repositories, services and routes onto a new echo instance
func newServer(cfg *config.Config, db *gorm.DB, blobs *storage.Store, mail *mailer.Mailer, verifier *jwtutil.Verifier) (*seller.Service, *echo.Echo) {
	listings := repository.NewListingRepository(db)
	catalog := repository.NewCatalogRepository(db)
	sellers := repository.NewSellerRepository(db)
	optimizer := imaging.New(cfg.Listing.ImageMaxDimension, cfg.Listing.ImageQuality)

	listingSvc := listing.NewService(listings, catalog, sellers, blobs, optimizer, listing.Config{
		ImagesBucket:     cfg.Storage.ListingImagesBucket,
		DocumentsBucket:  cfg.Storage.ListingDocumentsBucket,
		Limits:           listing.Limits{Default: cfg.Listing.DefaultLimit, Max: cfg.Listing.MaxLimit},
		MaxDocumentBytes: cfg.Listing.MaxDocumentBytes,
	})
	sellerSvc := seller.NewService(sellers, blobs, mail, optimizer, seller.Config{
		DocumentsBucket:  cfg.Storage.SellerDocumentsBucket,
		MaxDocumentBytes: cfg.Listing.MaxDocumentBytes,
	})

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(mid.RequestID())
	e.Use(mid.RequestLogger())
	e.Use(prometheus.Middleware())
	e.Use(echo.WrapMiddleware(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{echo.HeaderAuthorization, echo.HeaderContentType, mid.RequestIDKey},
		ExposedHeaders:   []string{mid.RequestIDKey},
		AllowCredentials: true,
	}).Handler))
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	e.GET("/metrics", echo.WrapHandler(prometheus.Handler()))

	handler.RegisterRoutes(e, handler.Handlers{
		Health:   handler.NewHealthHandler(cfg.ServiceName, func(ctx context.Context) error { return database.Ping(ctx, db) }),
		Listings: handler.NewListingHandler(listingSvc, cfg.Listing.MaxRequestBytes),
		Sellers:  handler.NewSellerHandler(sellerSvc, cfg.Listing.MaxRequestBytes),
		Catalog:  handler.NewCatalogHandler(catalog),
	}, mid.Auth(verifier), mid.RequireRole(cfg.JWT.AdminRole))

	return sellerSvc, e
}
