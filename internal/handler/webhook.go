package handler

import (
	"net/http"

	"erp-conference-api/internal/dto"
	"erp-conference-api/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// WebhookHandler always acks the sender with 200. The ERP does no
// sender-driven retry, so a non-2xx would only lose the event; failures
// are logged and repaired by the next event or a manual sync.
type WebhookHandler struct {
	webhookService service.WebhookService
	logger         zerolog.Logger
}

func NewWebhookHandler(webhookService service.WebhookService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         logger,
	}
}

func (h *WebhookHandler) OrderEvent(c echo.Context) error {
	ctx := c.Request().Context()

	var payload dto.WebhookOrderPayload
	if err := c.Bind(&payload); err != nil || payload.Data.ID == 0 {
		h.logger.Warn().Err(err).Msg("webhook: malformed order event")
		return c.NoContent(http.StatusOK)
	}

	if err := h.webhookService.OnOrderEvent(ctx, payload.Data.ID); err != nil {
		h.logger.Error().Err(err).Int64("order_id", payload.Data.ID).Msg("webhook: order event failed")
	}

	return c.NoContent(http.StatusOK)
}

func (h *WebhookHandler) StockEvent(c echo.Context) error {
	ctx := c.Request().Context()

	var payload dto.WebhookStockPayload
	if err := c.Bind(&payload); err != nil || payload.Data.Produto.ID == 0 {
		h.logger.Warn().Err(err).Msg("webhook: malformed stock event")
		return c.NoContent(http.StatusOK)
	}

	if err := h.webhookService.OnStockEvent(ctx, payload.Data.Produto.ID, payload.Data.SaldoVirtualTotal); err != nil {
		h.logger.Error().Err(err).Int64("product_id", payload.Data.Produto.ID).Msg("webhook: stock event failed")
	}

	return c.NoContent(http.StatusOK)
}
