// Package fanpushservice assembles the push fan-out service: the Pub/Sub
// pipeline that reacts to newly created notification records, and the HTTP
// surface for bulk sends and device token registration.
package fanpushservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-fanpush-service/fanpushservice/config"
	"github.com/tinywideclouds/go-fanpush-service/internal/api"
	"github.com/tinywideclouds/go-fanpush-service/internal/notifier"
	"github.com/tinywideclouds/go-fanpush-service/internal/pipeline"
	"github.com/tinywideclouds/go-fanpush-service/pkg/dispatch"
)

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[dispatch.NotificationRecord]
	logger          *slog.Logger
}

// New assembles the service. Both dispatchers share the same gateway and
// user store.
func New(
	cfg *config.Config,
	consumer messagepipeline.MessageConsumer,
	gateway dispatch.Gateway,
	store dispatch.UserStore,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Dispatchers
	recordDispatcher := notifier.NewDispatcher(store, gateway, logger)
	bulkDispatcher := notifier.NewBulkDispatcher(store, gateway, logger)

	// 3. Pipeline
	streamingService, err := messagepipeline.NewStreamingService(
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		consumer,
		pipeline.NewNotificationRecordTransformer(logger),
		pipeline.NewProcessor(recordDispatcher, logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	// 4. APIs
	callableAPI := api.NewCallableAPI(bulkDispatcher, logger)
	tokenAPI := api.NewTokenAPI(store, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(authMiddleware(handlerFunc)))
	}

	handle("POST /api/v1/sendBulkNotification", callableAPI.SendBulkNotification)
	handle("POST /api/v1/tokens/fcm", tokenAPI.RegisterFCM)
	handle("POST /api/v1/tokens/fcm/unregister", tokenAPI.UnregisterFCM)

	// CORS preflight for the API namespace.
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		logger:          logger,
	}, nil
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Notification pipeline starting...")
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
