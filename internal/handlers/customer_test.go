package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/marketconnect/marketconnect/internal/hash"
	"github.com/marketconnect/marketconnect/internal/models"
	"github.com/marketconnect/marketconnect/internal/tokens"
)

func newCustomerHandler(t *testing.T) *CustomerHandler {
	return &CustomerHandler{DB: initTestDB(t), JWTSecret: testSecret}
}

func TestCustomerRegister(t *testing.T) {
	h := newCustomerHandler(t)

	payload := map[string]string{
		"name":     "Test Customer",
		"email":    "customer@example.com",
		"password": "password",
	}
	rec, c := doJSONRequest(t, http.MethodPost, "/api/customers/register", payload)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "Test Customer", created.Name)
	require.NotEmpty(t, created.ID)

	var stored models.Customer
	require.NoError(t, h.DB.First(&stored, created.ID).Error)
	require.NotEqual(t, "password", stored.PasswordHash)

	// Same email again must be rejected.
	_, cDup := doJSONRequest(t, http.MethodPost, "/api/customers/register", payload)
	err := h.Register(cDup)
	require.Equal(t, http.StatusBadRequest, httpErrorCode(t, err))

	var count int64
	require.NoError(t, h.DB.Model(&models.Customer{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCustomerRegister_MissingFields(t *testing.T) {
	h := newCustomerHandler(t)

	_, c := doJSONRequest(t, http.MethodPost, "/api/customers/register", map[string]string{
		"email": "nobody@example.com",
	})
	err := h.Register(c)
	require.Equal(t, http.StatusBadRequest, httpErrorCode(t, err))
}

func TestCustomerLogin(t *testing.T) {
	h := newCustomerHandler(t)

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	customer := models.Customer{Name: "c", Email: "customer@example.com", PasswordHash: pwHash}
	require.NoError(t, h.DB.Create(&customer).Error)

	rec, c := doJSONRequest(t, http.MethodPost, "/api/customers/login", map[string]string{
		"email":    "customer@example.com",
		"password": "password",
	})
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)

	claims, err := tokens.AccessClaimsFromToken(resp.AccessToken, testSecret)
	require.NoError(t, err)
	require.Equal(t, models.RoleCustomer, claims.Role)
	require.Equal(t, "customer@example.com", claims.Email)
	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, customer.ID, id)
}

// Wrong password and unknown email must be indistinguishable to the caller.
func TestCustomerLogin_DoesNotLeakAccountExistence(t *testing.T) {
	h := newCustomerHandler(t)

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	require.NoError(t, h.DB.Create(&models.Customer{Name: "c", Email: "known@example.com", PasswordHash: pwHash}).Error)

	_, cWrongPw := doJSONRequest(t, http.MethodPost, "/api/customers/login", map[string]string{
		"email":    "known@example.com",
		"password": "wrong",
	})
	errWrongPw := h.Login(cWrongPw)

	_, cUnknown := doJSONRequest(t, http.MethodPost, "/api/customers/login", map[string]string{
		"email":    "unknown@example.com",
		"password": "whatever",
	})
	errUnknown := h.Login(cUnknown)

	heWrongPw := errWrongPw.(*echo.HTTPError)
	heUnknown := errUnknown.(*echo.HTTPError)
	require.Equal(t, http.StatusUnauthorized, heWrongPw.Code)
	require.Equal(t, http.StatusUnauthorized, heUnknown.Code)
	require.Equal(t, heUnknown.Message, heWrongPw.Message)
}

func TestSocialAuth_CreatesAndUpdates(t *testing.T) {
	h := newCustomerHandler(t)

	rec, c := doJSONRequest(t, http.MethodPost, "/api/customers/social-auth", map[string]string{
		"name":     "Social User",
		"email":    "social@example.com",
		"provider": "google",
	})
	require.NoError(t, h.SocialAuth(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.Customer
	require.NoError(t, h.DB.Where("email = ?", "social@example.com").First(&stored).Error)
	require.Equal(t, "google", stored.AuthProvider)
	require.NotEmpty(t, stored.PasswordHash)

	// Second auth with a different provider updates the tag, not a new row.
	rec2, c2 := doJSONRequest(t, http.MethodPost, "/api/customers/social-auth", map[string]string{
		"email":    "social@example.com",
		"provider": "facebook",
	})
	require.NoError(t, h.SocialAuth(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	var count int64
	require.NoError(t, h.DB.Model(&models.Customer{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
	require.NoError(t, h.DB.Where("email = ?", "social@example.com").First(&stored).Error)
	require.Equal(t, "facebook", stored.AuthProvider)
}

func TestForgotAndResetPassword(t *testing.T) {
	h := newCustomerHandler(t)

	pwHash, err := hash.HashPassword("old-password")
	require.NoError(t, err)
	customer := models.Customer{Name: "c", Email: "customer@example.com", PasswordHash: pwHash}
	require.NoError(t, h.DB.Create(&customer).Error)

	// Unknown email still answers 200 and stores nothing.
	recUnknown, cUnknown := doJSONRequest(t, http.MethodPost, "/api/customers/forgot-password", map[string]string{
		"email": "unknown@example.com",
	})
	require.NoError(t, h.ForgotPassword(cUnknown))
	require.Equal(t, http.StatusOK, recUnknown.Code)

	rec, c := doJSONRequest(t, http.MethodPost, "/api/customers/forgot-password", map[string]string{
		"email": "customer@example.com",
	})
	require.NoError(t, h.ForgotPassword(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var reset models.PasswordResetToken
	require.NoError(t, h.DB.Where("customer_id = ?", customer.ID).First(&reset).Error)
	require.False(t, reset.Used)

	recReset, cReset := doJSONRequest(t, http.MethodPost, "/api/customers/reset-password", map[string]string{
		"token":        reset.Token,
		"new_password": "new-password",
	})
	require.NoError(t, h.ResetPassword(cReset))
	require.Equal(t, http.StatusOK, recReset.Code)

	var updated models.Customer
	require.NoError(t, h.DB.First(&updated, customer.ID).Error)
	require.True(t, hash.CheckPassword(updated.PasswordHash, "new-password"))
	require.False(t, hash.CheckPassword(updated.PasswordHash, "old-password"))

	// A consumed token cannot be replayed.
	_, cReplay := doJSONRequest(t, http.MethodPost, "/api/customers/reset-password", map[string]string{
		"token":        reset.Token,
		"new_password": "another-password",
	})
	err = h.ResetPassword(cReplay)
	require.Equal(t, http.StatusBadRequest, httpErrorCode(t, err))
}

func TestCustomerProfile(t *testing.T) {
	h := newCustomerHandler(t)

	customer := models.Customer{Name: "Old Name", Email: "customer@example.com", PasswordHash: "x"}
	require.NoError(t, h.DB.Create(&customer).Error)

	rec, c := doJSONRequest(t, http.MethodGet, "/api/customers/profile", nil)
	asAuthed(c, customer.ID, models.RoleCustomer)
	require.NoError(t, h.GetProfile(c))
	require.Equal(t, http.StatusOK, rec.Code)

	recUpd, cUpd := doJSONRequest(t, http.MethodPut, "/api/customers/profile", map[string]string{
		"name":  "New Name",
		"phone": "12345",
	})
	asAuthed(cUpd, customer.ID, models.RoleCustomer)
	require.NoError(t, h.UpdateProfile(cUpd))
	require.Equal(t, http.StatusOK, recUpd.Code)

	var stored models.Customer
	require.NoError(t, h.DB.First(&stored, customer.ID).Error)
	require.Equal(t, "New Name", stored.Name)
	require.Equal(t, "12345", stored.Phone)
}
