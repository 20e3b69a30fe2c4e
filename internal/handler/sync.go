package handler

import (
	"net/http"

	"erp-conference-api/internal/service"

	"github.com/labstack/echo/v4"
)

type SyncHandler struct {
	syncService service.SyncService
}

func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

func (h *SyncHandler) SyncOrders(c echo.Context) error {
	count, err := h.syncService.SyncOrders(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   count,
	})
}

func (h *SyncHandler) SyncProducts(c echo.Context) error {
	count, err := h.syncService.SyncProducts(c.Request().Context())
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"count":   count,
	})
}
