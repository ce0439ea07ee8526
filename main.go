package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/ups-shipping-service/controllers"
	awspkg "github.com/yashrajoria/ups-shipping-service/pkg/aws"
	"github.com/yashrajoria/ups-shipping-service/pkg/logger"
	"github.com/yashrajoria/ups-shipping-service/pkg/middleware"
	"github.com/yashrajoria/ups-shipping-service/providers"
	"github.com/yashrajoria/ups-shipping-service/routes"
	servicepkg "github.com/yashrajoria/ups-shipping-service/services"
	"github.com/yashrajoria/ups-shipping-service/storage"
	"github.com/yashrajoria/ups-shipping-service/templates"
	"go.uber.org/zap"
)

const serviceName = "ups-shipping-service"

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// AWS is optional: only the s3 store, SNS events, secrets and CloudWatch need it.
	var (
		awsCfg   sdkaws.Config
		awsErr   error
		awsReady bool
	)
	if cfg.NeedsAWS() {
		awsCfg, awsErr = awspkg.LoadAWSConfig(ctx)
		awsReady = awsErr == nil
	}

	var cwWriter io.Writer
	if cfg.CloudWatchEnabled && awsReady {
		if cw, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, serviceName); err == nil {
			cwWriter = cw
		} else {
			log.Printf("CloudWatch logs disabled: %v", err)
		}
	}

	zl, err := logger.New(cfg.AppEnv, logger.Options{FilePath: cfg.LogFile, CloudWatch: cwWriter})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if awsErr != nil {
		zl.Warn("AWS config unavailable, AWS integrations disabled", zap.Error(awsErr))
	}

	if cfg.UseSecrets && awsReady {
		if err := cfg.ApplySecrets(ctx, awspkg.NewSecretsClient(awsCfg)); err != nil {
			zl.Warn("Secrets Manager override failed, using environment", zap.Error(err))
		}
	}
	if err := cfg.Validate(); err != nil {
		zl.Fatal("Configuration rejected", zap.Error(err))
	}

	var snsClient awspkg.SNSPublisher
	if cfg.ShippingSNSTopicARN != "" && awsReady {
		snsClient = awspkg.NewSNSClient(awsCfg)
	}

	var metrics awspkg.MetricsRecorder
	if cfg.CloudWatchEnabled && awsReady {
		metrics = awspkg.NewMetricsClient(awsCfg)
	}

	var labelStore storage.LabelStore
	var localRoot string
	switch cfg.LabelStore {
	case storage.BackendS3:
		if !awsReady {
			zl.Fatal("LABEL_STORE=s3 requires AWS configuration")
		}
		labelStore = storage.NewS3LabelStore(awspkg.NewS3Client(awsCfg), cfg.LabelS3Bucket, awspkg.CustomEndpoint())
	default:
		localRoot = cfg.StorageRoot
		labelStore = storage.NewLocalLabelStore(localRoot, cfg.PublicBaseURL)
	}

	// Provider and DI chain
	upsProvider := providers.NewUPSProvider(cfg.UPS(), zl.Named("ups"))
	shippingService := servicepkg.NewShippingService(
		upsProvider,
		labelStore,
		snsClient,
		cfg.ShippingSNSTopicARN,
		metrics,
		zl,
	)
	shippingController := controllers.NewShippingController(shippingService, zl)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(zl))
	r.Use(middleware.MetricsMiddleware(metrics, serviceName))
	r.Use(middleware.SecurityHeaders())

	stopLimiter := make(chan struct{})
	defer close(stopLimiter)
	r.Use(middleware.RateLimitMiddleware(middleware.DefaultRateLimiter(stopLimiter)))

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	tmpl, err := templates.Load()
	if err != nil {
		zl.Fatal("Failed to parse templates", zap.Error(err))
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	routes.RegisterShippingRoutes(r, shippingController)
	if localRoot != "" {
		routes.RegisterStorageRoutes(r, localRoot)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	zl.Info("UPS shipping service started",
		zap.String("port", cfg.Port),
		zap.Bool("sandbox", cfg.UPSSandbox),
		zap.String("label_store", cfg.LabelStore),
	)
	<-quit
	zl.Info("Shutting down UPS shipping service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Fatal("Server forced to shutdown", zap.Error(err))
	}
	zl.Info("Server exited cleanly")
}
