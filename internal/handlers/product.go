package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marketconnect/marketconnect/internal/middleware/auth"
	"github.com/marketconnect/marketconnect/internal/models"
	"github.com/marketconnect/marketconnect/internal/mykafka"
	"github.com/marketconnect/marketconnect/internal/util"
)

const trendingLimit = 10

type ProductHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

type productRequest struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	Category         string   `json:"category"`
	Price            float64  `json:"price"`
	StockQuantity    *uint    `json:"stock_quantity"`
	AvailableOnline  *bool    `json:"available_online"`
	AvailableInStore *bool    `json:"available_in_store"`
	FlashPrice       *float64 `json:"flash_price"`
	FlashEndsAt      string   `json:"flash_ends_at"`
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	category := c.QueryParam("category")
	filtered := func(q *gorm.DB) *gorm.DB {
		if category != "" {
			return q.Where("category = ?", category)
		}
		return q
	}

	var total int64
	if err := filtered(h.DB.Model(&models.Product{})).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	var items []models.Product
	if err := filtered(h.DB.Model(&models.Product{})).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// Trending ranks products by units sold across all order items.
func (h *ProductHandler) Trending(c echo.Context) error {
	var items []models.Product
	err := h.DB.Model(&models.Product{}).
		Select("products.*").
		Joins("JOIN order_items ON order_items.product_id = products.id").
		Group("products.id").
		Order("SUM(order_items.quantity) DESC").
		Limit(trendingLimit).
		Find(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list trending products")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) FlashDeals(c echo.Context) error {
	var items []models.Product
	err := h.DB.
		Where("flash_price > 0 AND flash_ends_at > ?", time.Now()).
		Order("flash_ends_at ASC").
		Find(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list flash deals")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	vendorID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Price <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "name and a positive price are required")
	}

	prod := models.Product{
		VendorID:         vendorID,
		Name:             req.Name,
		Description:      req.Description,
		Category:         req.Category,
		Price:            req.Price,
		AvailableOnline:  true,
		AvailableInStore: false,
	}
	if req.StockQuantity != nil {
		prod.StockQuantity = *req.StockQuantity
	}
	if req.AvailableOnline != nil {
		prod.AvailableOnline = *req.AvailableOnline
	}
	if req.AvailableInStore != nil {
		prod.AvailableInStore = *req.AvailableInStore
	}
	if err := applyFlashDeal(&prod, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.DB.Create(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot create product")
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(vendorID), map[string]any{
		"type":       "product_created",
		"product_id": prod.ID,
		"vendor_id":  vendorID,
		"name":       prod.Name,
	})

	return c.JSON(http.StatusCreated, prod)
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	vendorID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var req productRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if prod.VendorID != vendorID {
		return echo.NewHTTPError(http.StatusForbidden, "product belongs to another vendor")
	}

	if req.Name != "" {
		prod.Name = req.Name
	}
	if req.Description != "" {
		prod.Description = req.Description
	}
	if req.Category != "" {
		prod.Category = req.Category
	}
	if req.Price > 0 {
		prod.Price = req.Price
	}
	if req.StockQuantity != nil {
		prod.StockQuantity = *req.StockQuantity
	}
	if req.AvailableOnline != nil {
		prod.AvailableOnline = *req.AvailableOnline
	}
	if req.AvailableInStore != nil {
		prod.AvailableInStore = *req.AvailableInStore
	}
	if err := applyFlashDeal(&prod, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.DB.Save(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(vendorID), map[string]any{
		"type":       "product_updated",
		"product_id": prod.ID,
		"vendor_id":  vendorID,
		"name":       prod.Name,
	})

	return c.JSON(http.StatusOK, prod)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	vendorID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errorResponse(c, http.StatusBadRequest, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "product not found")
	}
	if prod.VendorID != vendorID {
		return echo.NewHTTPError(http.StatusForbidden, "product belongs to another vendor")
	}

	if err := h.DB.Delete(&prod).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}

	publish(c, h.Producer, "product_events", fmt.Sprint(vendorID), map[string]any{
		"type":       "product_deleted",
		"product_id": id,
		"vendor_id":  vendorID,
	})

	return c.NoContent(http.StatusNoContent)
}

// applyFlashDeal schedules, replaces, or clears a product's flash deal.
// An explicit zero flash_price ends the current deal.
func applyFlashDeal(prod *models.Product, req *productRequest) error {
	if req.FlashPrice == nil {
		return nil
	}
	if *req.FlashPrice < 0 {
		return errors.New("flash_price cannot be negative")
	}
	if *req.FlashPrice == 0 {
		prod.FlashPrice = 0
		prod.FlashEndsAt = time.Time{}
		return nil
	}
	if req.FlashEndsAt == "" {
		return errors.New("flash_ends_at is required to schedule a flash deal")
	}
	endsAt, err := time.Parse(time.RFC3339, req.FlashEndsAt)
	if err != nil {
		return errors.New("flash_ends_at must be an RFC3339 timestamp")
	}
	prod.FlashPrice = *req.FlashPrice
	prod.FlashEndsAt = endsAt
	return nil
}
