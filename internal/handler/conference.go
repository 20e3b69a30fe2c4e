package handler

import (
	"errors"
	"net/http"
	"strconv"

	"erp-conference-api/internal/client"
	"erp-conference-api/internal/dto"
	"erp-conference-api/internal/service"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type ConferenceHandler struct {
	checkoutService service.CheckoutService
	pendingService  service.PendingBalanceService
}

func NewConferenceHandler(checkoutService service.CheckoutService, pendingService service.PendingBalanceService) *ConferenceHandler {
	return &ConferenceHandler{
		checkoutService: checkoutService,
		pendingService:  pendingService,
	}
}

func orderIDFromPath(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	return id, nil
}

func (h *ConferenceHandler) CheckItem(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDFromPath(c)
	if err != nil {
		return err
	}

	var req dto.CheckItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.Code == "" {
		return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{Message: "code is required"})
	}

	result, err := h.checkoutService.CheckItem(ctx, orderID, req.Code, req.Quantity)
	if err != nil {
		// A code that matches nothing is a scan mishap, not a failure.
		if errors.Is(err, service.ErrItemNotInOrder) {
			return c.JSON(http.StatusOK, &dto.CheckItemResponse{
				Success: false,
				Warning: "item not found in order",
			})
		}
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *ConferenceHandler) SavePartial(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDFromPath(c)
	if err != nil {
		return err
	}

	var req dto.SaveItemsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}

	if err := h.checkoutService.SavePartial(ctx, orderID, req.Items); err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.SuccessResponse{Success: true})
}

func (h *ConferenceHandler) Finalize(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDFromPath(c)
	if err != nil {
		return err
	}

	if err := h.checkoutService.Finalize(ctx, orderID); err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, &dto.SuccessResponse{Success: true})
}

func (h *ConferenceHandler) ReplaceItem(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDFromPath(c)
	if err != nil {
		return err
	}

	var req dto.ReplaceItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.OldSku == "" || req.NewProductSku == "" {
		return c.JSON(http.StatusBadRequest, &dto.ErrorResponse{Message: "oldSku and newProductSku are required"})
	}

	result, err := h.checkoutService.ReplaceItem(ctx, orderID, req.OldSku, req.NewProductSku)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

func (h *ConferenceHandler) PendingBalance(c echo.Context) error {
	ctx := c.Request().Context()

	orderID, err := orderIDFromPath(c)
	if err != nil {
		return err
	}

	result, err := h.pendingService.CreatePendingBalance(ctx, orderID)
	if err != nil {
		return writeServiceError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// writeServiceError translates typed service/client errors into the
// structured error payload.
func writeServiceError(c echo.Context, err error) error {
	var verr *client.RemoteValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusUnprocessableEntity, &dto.ErrorResponse{
			Message:     verr.Message,
			FieldErrors: verr.FieldErrors,
		})
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.JSON(http.StatusNotFound, &dto.ErrorResponse{Message: "order not found"})
	case errors.Is(err, service.ErrItemNotInOrder):
		return c.JSON(http.StatusNotFound, &dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrOrderCompleted):
		return c.JSON(http.StatusConflict, &dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, service.ErrNoPendingItems):
		return c.JSON(http.StatusUnprocessableEntity, &dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, client.ErrNotFound):
		return c.JSON(http.StatusNotFound, &dto.ErrorResponse{Message: err.Error()})
	case errors.Is(err, client.ErrRemoteAuth):
		return c.JSON(http.StatusBadGateway, &dto.ErrorResponse{Message: "erp authorization failed"})
	default:
		return c.JSON(http.StatusInternalServerError, &dto.ErrorResponse{Message: err.Error()})
	}
}
