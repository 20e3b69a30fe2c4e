package server

import (
	"context"
	"net/http"
	"time"

	"erp-conference-api/internal/handler"
	appmiddleware "erp-conference-api/internal/middleware"
	"erp-conference-api/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type Server struct {
	echo              *echo.Echo
	conferenceHandler *handler.ConferenceHandler
	webhookHandler    *handler.WebhookHandler
	syncHandler       *handler.SyncHandler
}

func NewServer(
	checkoutService service.CheckoutService,
	pendingService service.PendingBalanceService,
	webhookService service.WebhookService,
	syncService service.SyncService,
	apiKey string,
	logger zerolog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(20),
			Burst:     40,
			ExpiresIn: 3 * time.Minute,
		})))

	conferenceHandler := handler.NewConferenceHandler(checkoutService, pendingService)
	webhookHandler := handler.NewWebhookHandler(webhookService, logger)
	syncHandler := handler.NewSyncHandler(syncService)

	s := &Server{
		echo:              e,
		conferenceHandler: conferenceHandler,
		webhookHandler:    webhookHandler,
		syncHandler:       syncHandler,
	}

	s.setupRoutes(apiKey)
	return s
}

func (s *Server) setupRoutes(apiKey string) {
	api := s.echo.Group("/api")
	api.Use(appmiddleware.APIKey(apiKey))

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- checkout conference --------
	pedidos := api.Group("/pedidos")
	pedidos.POST("/:orderId/conferir", s.conferenceHandler.CheckItem)
	pedidos.POST("/:orderId/salvar-parcial", s.conferenceHandler.SavePartial)
	pedidos.POST("/:orderId/finalizar", s.conferenceHandler.Finalize)
	pedidos.POST("/:orderId/substituir-produto", s.conferenceHandler.ReplaceItem)
	pedidos.POST("/:orderId/saldo-pendente", s.conferenceHandler.PendingBalance)

	api.POST("/sync/pedidos", s.syncHandler.SyncOrders)
	api.POST("/sync/produtos", s.syncHandler.SyncProducts)

	// -------- erp webhooks --------
	webhook := s.echo.Group("/webhook")
	webhook.POST("/order", s.webhookHandler.OrderEvent)
	webhook.POST("/stock", s.webhookHandler.StockEvent)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
