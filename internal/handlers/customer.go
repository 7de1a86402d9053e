package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/marketconnect/marketconnect/internal/hash"
	"github.com/marketconnect/marketconnect/internal/middleware/auth"
	"github.com/marketconnect/marketconnect/internal/models"
	"github.com/marketconnect/marketconnect/internal/mykafka"
	"github.com/marketconnect/marketconnect/internal/tokens"
)

const resetTokenTTL = time.Hour

type CustomerHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

func (h *CustomerHandler) Register(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Phone    string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name, email and password are required")
	}

	var existing models.Customer
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "customer already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create customer")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create customer")
	}

	customer := models.Customer{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Phone:        req.Phone,
	}
	if err := h.DB.Create(&customer).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "customer already exists")
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(customer.ID), map[string]any{
		"type":        "customer_registered",
		"customer_id": customer.ID,
		"email":       customer.Email,
	})

	return c.JSON(http.StatusCreated, customer)
}

func (h *CustomerHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	// Same response for unknown email and wrong password.
	var customer models.Customer
	if err := h.DB.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if !hash.CheckPassword(customer.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := tokens.SignAccessToken(customer.ID, customer.Email, models.RoleCustomer, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(customer.ID), map[string]any{
		"type":        "customer_logged_in",
		"customer_id": customer.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"customer":     customer,
	})
}

// SocialAuth creates or updates a customer keyed by email with a provider
// tag. The stored password is a bcrypt hash of a random value, never usable
// for credential login.
func (h *CustomerHandler) SocialAuth(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Provider string `json:"provider"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Provider == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and provider are required")
	}

	var customer models.Customer
	err := h.DB.Where("email = ?", req.Email).First(&customer).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		pwHash, hashErr := hash.HashPassword(uuid.NewString())
		if hashErr != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create customer")
		}
		customer = models.Customer{
			Name:         req.Name,
			Email:        req.Email,
			PasswordHash: pwHash,
			AuthProvider: req.Provider,
		}
		if err := h.DB.Create(&customer).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot create customer")
		}
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot authenticate")
	default:
		customer.AuthProvider = req.Provider
		if req.Name != "" {
			customer.Name = req.Name
		}
		if err := h.DB.Save(&customer).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "cannot authenticate")
		}
	}

	token, err := tokens.SignAccessToken(customer.ID, customer.Email, models.RoleCustomer, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"customer":     customer,
	})
}

func (h *CustomerHandler) GetProfile(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var customer models.Customer
	if err := h.DB.First(&customer, customerID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "customer not found")
	}
	return c.JSON(http.StatusOK, customer)
}

func (h *CustomerHandler) UpdateProfile(c echo.Context) error {
	customerID, err := auth.UserID(c)
	if err != nil {
		return err
	}

	var req struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var customer models.Customer
	if err := h.DB.First(&customer, customerID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "customer not found")
	}

	if req.Name != "" {
		customer.Name = req.Name
	}
	if req.Phone != "" {
		customer.Phone = req.Phone
	}

	if err := h.DB.Save(&customer).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update customer")
	}
	return c.JSON(http.StatusOK, customer)
}

// ForgotPassword answers 200 whether or not the account exists.
func (h *CustomerHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	accepted := echo.Map{
		"message": "if the account exists, a reset link has been sent",
	}

	var customer models.Customer
	if err := h.DB.Where("email = ?", req.Email).First(&customer).Error; err != nil {
		return c.JSON(http.StatusOK, accepted)
	}

	reset := models.PasswordResetToken{
		CustomerID: customer.ID,
		Token:      uuid.NewString(),
		ExpiresAt:  time.Now().Add(resetTokenTTL),
	}
	if err := h.DB.Create(&reset).Error; err != nil {
		c.Logger().Errorf("cannot store reset token: %v", err)
		return c.JSON(http.StatusOK, accepted)
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(customer.ID), map[string]any{
		"type":        "password_reset_requested",
		"customer_id": customer.ID,
		"token":       reset.Token,
	})

	return c.JSON(http.StatusOK, accepted)
}

func (h *CustomerHandler) ResetPassword(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Token == "" || req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token and new_password are required")
	}

	var reset models.PasswordResetToken
	if err := h.DB.Where("token = ?", req.Token).First(&reset).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired reset token")
	}
	if reset.Used || time.Now().After(reset.ExpiresAt) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid or expired reset token")
	}

	pwHash, err := hash.HashPassword(req.NewPassword)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot reset password")
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Customer{}).Where("id = ?", reset.CustomerID).
			Update("password_hash", pwHash).Error; err != nil {
			return err
		}
		return tx.Model(&models.PasswordResetToken{}).Where("id = ?", reset.ID).
			Update("used", true).Error
	})
	if txErr != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot reset password")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
