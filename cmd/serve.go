package cmd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	authclient "github.com/vibast-solutions/lib-go-auth/client"
	authmiddleware "github.com/vibast-solutions/lib-go-auth/middleware"
	authlibservice "github.com/vibast-solutions/lib-go-auth/service"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/controller"
	grpcserver "github.com/vibast-solutions/ms-go-hotel-billing/app/grpc"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/jobs"
	"github.com/vibast-solutions/ms-go-hotel-billing/config"
	"google.golang.org/grpc"
)

var serveWithScheduler bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and gRPC servers",
	Long:  "Start both HTTP (Echo) and gRPC servers for the hotel billing service.",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveWithScheduler, "scheduler", false, "Also run the platform-fee settlement schedule in this process")
}

func runServe(_ *cobra.Command, _ []string) {
	app := mustCreateApplication()
	defer app.Close()
	cfg := app.cfg

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	planController := controller.NewPlanController(app.planService)
	subscriptionController := controller.NewSubscriptionController(app.subscriptionService)
	grpcBillingServer := grpcserver.NewServer(app.subscriptionService, app.planService)

	authGRPCClient, err := authclient.NewGRPCClientFromAddr(context.Background(), cfg.InternalEndpoints.AuthGRPCAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize auth gRPC client")
	}
	defer authGRPCClient.Close()
	internalAuthService := authlibservice.NewInternalAuthService(authGRPCClient)
	echoInternalAuthMiddleware := authmiddleware.NewEchoInternalAuthMiddleware(internalAuthService)
	grpcInternalAuthMiddleware := authmiddleware.NewGRPCInternalAuthMiddleware(internalAuthService)

	e := setupHTTPServer(planController, subscriptionController, registry, echoInternalAuthMiddleware, cfg.App.ServiceName)
	grpcSrv, lis := setupGRPCServer(cfg, grpcBillingServer, grpcInternalAuthMiddleware, cfg.App.ServiceName)

	var scheduler *jobs.Scheduler
	if serveWithScheduler {
		lock, closeLock := app.newSettlementLock()
		defer closeLock()

		job := jobs.NewPlatformFeeJob(app.settlementService, jobs.NewRunner(lock, jobs.NewMetrics(registry)))
		scheduler = jobs.NewScheduler(cfg.Settlement.Location)
		if err := job.Schedule(scheduler, cfg.Settlement.Schedule); err != nil {
			logrus.WithError(err).Fatal("Invalid settlement schedule")
		}
		scheduler.Start()
		logrus.WithField("schedule", cfg.Settlement.Schedule).Info("Settlement scheduler started")
	}

	go func() {
		httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
		logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
		if err := e.Start(httpAddr); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	go func() {
		logrus.WithField("addr", lis.Addr().String()).Info("Starting gRPC server")
		if err := grpcSrv.Serve(lis); err != nil {
			logrus.WithError(err).Fatal("gRPC server error")
		}
	}()

	waitForShutdown()
	logrus.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-shutdownCtx.Done():
			logrus.Warn("Settlement run still in progress at shutdown")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP shutdown error")
	}
	grpcSrv.GracefulStop()

	logrus.Info("Server stopped")
}

func setupHTTPServer(
	planController *controller.PlanController,
	subscriptionController *controller.SubscriptionController,
	gatherer prometheus.Gatherer,
	internalAuthMiddleware *authmiddleware.EchoInternalAuthMiddleware,
	appServiceName string,
) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
				"request_id": v.RequestID,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: func() string {
			return fmt.Sprintf("rest-%s", uuid.New().String())
		},
	}))
	e.Use(internalAuthMiddleware.RequireInternalAccess(appServiceName))

	e.GET("/health", subscriptionController.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	plans := e.Group("/plans")
	plans.GET("", planController.ListPlans)
	plans.GET("/active", planController.ListActivePlans)
	plans.GET("/:id", planController.GetPlan)
	plans.POST("", planController.CreatePlan)
	plans.PATCH("/:id", planController.UpdatePlan)
	plans.POST("/:id/block", planController.BlockPlan)
	plans.POST("/:id/unblock", planController.UnblockPlan)

	users := e.Group("/users/:user_id")
	users.POST("/subscription", subscriptionController.Subscribe)
	users.DELETE("/subscription", subscriptionController.CancelSubscription)
	users.GET("/subscription", subscriptionController.GetUserActivePlan)
	users.GET("/subscription/history", subscriptionController.ListHistory)

	return e
}

func setupGRPCServer(
	cfg *config.Config,
	billingServer *grpcserver.Server,
	internalAuthMiddleware *authmiddleware.GRPCInternalAuthMiddleware,
	appServiceName string,
) (*grpc.Server, net.Listener) {
	grpcAddr := net.JoinHostPort(cfg.GRPC.Host, cfg.GRPC.Port)
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to listen on gRPC port")
	}

	grpcSrv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoveryInterceptor(),
			grpcserver.RequestIDInterceptor(),
			grpcserver.LoggingInterceptor(),
			internalAuthMiddleware.UnaryRequireInternalAccess(appServiceName),
		),
	)
	grpcserver.RegisterBillingServiceServer(grpcSrv, billingServer)

	return grpcSrv, lis
}
