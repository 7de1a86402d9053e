package order

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marketconnect/marketconnect/internal/middleware/auth"
	"github.com/marketconnect/marketconnect/internal/models"
	"github.com/marketconnect/marketconnect/internal/mykafka"
	"github.com/marketconnect/marketconnect/internal/service/checkout"
	"github.com/marketconnect/marketconnect/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Checkout *checkout.Service
	Producer *mykafka.Producer
}

// Create places an online order from the customer's current cart.
func (h *OrderHandler) Create(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ShippingAddress string `json:"shipping_address"`
		PaymentMethod   string `json:"payment_method"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ShippingAddress == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "shipping_address is required")
	}

	placed, err := h.Checkout.PlaceOnlineOrder(c.Request().Context(), customerID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		return translateCheckoutError(err)
	}

	h.publishPlaced(c, placed)
	return c.JSON(http.StatusCreated, placed)
}

// CreateInStore places a single-product in-store order through the same
// transactional routine as the online path.
func (h *OrderHandler) CreateInStore(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID     uint   `json:"product_id"`
		Quantity      uint   `json:"quantity"`
		PaymentMethod string `json:"payment_method"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}

	placed, err := h.Checkout.PlaceInStoreOrder(c.Request().Context(), customerID, req.ProductID, req.Quantity, req.PaymentMethod)
	if err != nil {
		return translateCheckoutError(err)
	}

	h.publishPlaced(c, placed)
	return c.JSON(http.StatusCreated, placed)
}

func (h *OrderHandler) ListCustomerOrders(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var orders []models.Order
	if err := h.DB.Where("customer_id = ?", customerID).
		Order("created_at DESC").Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetCustomerOrder(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("orderId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND customer_id = ?", orderID, customerID).First(&order).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read order")
	}

	return c.JSON(http.StatusOK, echo.Map{"order": order, "items": items})
}

// ListVendorOrders returns orders containing at least one of the vendor's
// products.
func (h *OrderHandler) ListVendorOrders(c echo.Context) error {
	vendorID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	var orders []models.Order
	if err := h.DB.Model(&models.Order{}).
		Select("orders.*").
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("order_items.vendor_id = ?", vendorID).
		Group("orders.id").
		Order("MAX(orders.created_at) DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	vendorID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	orderID, err := strconv.Atoi(c.Param("orderId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	next, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var order models.Order
	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "order not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot read order")
		}

		var count int64
		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ? AND vendor_id = ?", order.ID, vendorID).
			Count(&count).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot read order")
		}
		if count == 0 {
			return echo.NewHTTPError(http.StatusForbidden, "order does not contain your products")
		}

		if !order.Status.CanTransitionTo(next) {
			return echo.NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("cannot change order status from %s to %s", order.Status, next))
		}

		// The status filter makes the write conditional on the status the
		// transition was validated against.
		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", order.ID, order.Status).
			Update("status", next)
		if res.Error != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update order")
		}
		if res.RowsAffected == 0 {
			return echo.NewHTTPError(http.StatusConflict, "order status changed concurrently")
		}
		order.Status = next
		return nil
	}); err != nil {
		return err
	}

	h.publish(c, order.CustomerID, map[string]any{
		"type":     "order_status_changed",
		"order_id": order.ID,
		"status":   string(next),
	})
	return c.JSON(http.StatusOK, order)
}

func translateCheckoutError(err error) error {
	var stockErr *checkout.InsufficientStockError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrProductNotFound),
		errors.Is(err, checkout.ErrNotInStore):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.As(err, &stockErr):
		return echo.NewHTTPError(http.StatusBadRequest, stockErr.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "could not place order")
}
