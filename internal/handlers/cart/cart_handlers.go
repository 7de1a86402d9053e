package cart

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marketconnect/marketconnect/internal/middleware/auth"
	"github.com/marketconnect/marketconnect/internal/models"
	"github.com/marketconnect/marketconnect/internal/mykafka"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CartHandler) GetCart(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var items []models.CartItem
	if err := h.DB.Where("customer_id = ?", customerID).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read cart")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CartHandler) AddToCart(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id"`
		Quantity  uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var product models.Product
	if err := h.DB.First(&product, req.ProductID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}

	var item models.CartItem
	tx := h.DB.Where("customer_id = ? AND product_id = ?", customerID, req.ProductID).First(&item)
	if tx.Error == nil {
		newQuantity := item.Quantity + req.Quantity
		if newQuantity > product.StockQuantity {
			return echo.NewHTTPError(http.StatusBadRequest, "requested quantity exceeds available stock")
		}
		item.Quantity = newQuantity
		if err := h.DB.Save(&item).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart")
		}
		h.publish(c, customerID, map[string]any{
			"type":        "cart_item_added",
			"customer_id": customerID,
			"product_id":  req.ProductID,
			"quantity":    item.Quantity,
		})
		return c.JSON(http.StatusOK, item)
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read cart")
	}

	if req.Quantity > product.StockQuantity {
		return echo.NewHTTPError(http.StatusBadRequest, "requested quantity exceeds available stock")
	}

	newItem := models.CartItem{
		CustomerID: customerID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
	}
	if err := h.DB.Create(&newItem).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart")
	}
	h.publish(c, customerID, map[string]any{
		"type":        "cart_item_added",
		"customer_id": customerID,
		"product_id":  req.ProductID,
		"quantity":    newItem.Quantity,
	})
	return c.JSON(http.StatusOK, newItem)
}

func (h *CartHandler) UpdateItem(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Quantity uint `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be at least 1")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND customer_id = ?", id, customerID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read cart")
	}

	var product models.Product
	if err := h.DB.First(&product, item.ProductID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if req.Quantity > product.StockQuantity {
		return echo.NewHTTPError(http.StatusBadRequest, "requested quantity exceeds available stock")
	}

	item.Quantity = req.Quantity
	if err := h.DB.Save(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) DeleteItem(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var item models.CartItem
	if err := h.DB.Where("id = ? AND customer_id = ?", id, customerID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "cart item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot read cart")
	}

	if err := h.DB.Delete(&item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart")
	}

	h.publish(c, customerID, map[string]any{
		"type":        "cart_item_removed",
		"customer_id": customerID,
		"item_id":     id,
	})
	return c.NoContent(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	if err := h.DB.Where("customer_id = ?", customerID).Delete(&models.CartItem{}).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot clear cart")
	}

	h.publish(c, customerID, map[string]any{
		"type":        "cart_cleared",
		"customer_id": customerID,
	})
	return c.NoContent(http.StatusNoContent)
}
