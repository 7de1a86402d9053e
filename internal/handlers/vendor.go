package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marketconnect/marketconnect/internal/hash"
	"github.com/marketconnect/marketconnect/internal/idcard"
	"github.com/marketconnect/marketconnect/internal/middleware/auth"
	"github.com/marketconnect/marketconnect/internal/models"
	"github.com/marketconnect/marketconnect/internal/mykafka"
	"github.com/marketconnect/marketconnect/internal/tokens"
)

type VendorHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

func (h *VendorHandler) Signup(c echo.Context) error {
	var req struct {
		BusinessName string `json:"business_name"`
		Email        string `json:"email"`
		Password     string `json:"password"`
		Phone        string `json:"phone"`
		Address      string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.BusinessName == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "business_name, email and password are required")
	}

	var existing models.Vendor
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "vendor already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create vendor")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create vendor")
	}

	vendor := models.Vendor{
		BusinessName: req.BusinessName,
		Email:        req.Email,
		PasswordHash: pwHash,
		Phone:        req.Phone,
		Address:      req.Address,
	}
	if err := h.DB.Create(&vendor).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "vendor already exists")
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(vendor.ID), map[string]any{
		"type":      "vendor_registered",
		"vendor_id": vendor.ID,
		"email":     vendor.Email,
	})

	return c.JSON(http.StatusCreated, vendor)
}

func (h *VendorHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var vendor models.Vendor
	if err := h.DB.Where("email = ?", req.Email).First(&vendor).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !hash.CheckPassword(vendor.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := tokens.SignAccessToken(vendor.ID, vendor.Email, models.RoleVendor, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"vendor":       vendor,
	})
}

func (h *VendorHandler) GetProfile(c echo.Context) error {
	vendorID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var vendor models.Vendor
	if err := h.DB.First(&vendor, vendorID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "vendor not found")
	}
	return c.JSON(http.StatusOK, vendor)
}

func (h *VendorHandler) UpdateProfile(c echo.Context) error {
	vendorID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		BusinessName string `json:"business_name"`
		Phone        string `json:"phone"`
		Address      string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var vendor models.Vendor
	if err := h.DB.First(&vendor, vendorID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "vendor not found")
	}

	if req.BusinessName != "" {
		vendor.BusinessName = req.BusinessName
	}
	if req.Phone != "" {
		vendor.Phone = req.Phone
	}
	if req.Address != "" {
		vendor.Address = req.Address
	}

	if err := h.DB.Save(&vendor).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update vendor")
	}
	return c.JSON(http.StatusOK, vendor)
}

func (h *VendorHandler) IDCard(c echo.Context) error {
	vendorID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var vendor models.Vendor
	if err := h.DB.First(&vendor, vendorID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "vendor not found")
	}

	png, err := idcard.PNG(&vendor)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot generate id card")
	}
	return c.Blob(http.StatusOK, "image/png", png)
}
