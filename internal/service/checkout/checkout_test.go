package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/marketconnect/marketconnect/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Vendor{}, &models.Customer{}, &models.Product{},
		&models.CartItem{}, &models.Order{}, &models.OrderItem{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, vendorID uint, price float64, stock uint) models.Product {
	t.Helper()
	p := models.Product{
		VendorID:         vendorID,
		Name:             "widget",
		Price:            price,
		StockQuantity:    stock,
		AvailableOnline:  true,
		AvailableInStore: true,
	}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestPlaceOnlineOrder_EmptyCart(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	_, err := svc.PlaceOnlineOrder(context.Background(), 1, "some street", "card")
	require.ErrorIs(t, err, ErrEmptyCart)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

func TestPlaceOnlineOrder_InsufficientStockRollsBackEverything(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	cheap := seedProduct(t, db, 1, 5, 100)
	scarce := seedProduct(t, db, 1, 50, 2)

	require.NoError(t, db.Create(&models.CartItem{CustomerID: 7, ProductID: cheap.ID, Quantity: 3}).Error)
	require.NoError(t, db.Create(&models.CartItem{CustomerID: 7, ProductID: scarce.ID, Quantity: 5}).Error)

	_, err := svc.PlaceOnlineOrder(context.Background(), 7, "some street", "card")

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, scarce.ID, stockErr.ProductID)
	require.Contains(t, stockErr.Error(), "widget")

	// Nothing moved: stock (including the already-decremented first line),
	// cart and orders are untouched.
	var gotCheap, gotScarce models.Product
	require.NoError(t, db.First(&gotCheap, cheap.ID).Error)
	require.Equal(t, uint(100), gotCheap.StockQuantity)
	require.NoError(t, db.First(&gotScarce, scarce.ID).Error)
	require.Equal(t, uint(2), gotScarce.StockQuantity)

	var cartCount, orderCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("customer_id = ?", 7).Count(&cartCount).Error)
	require.EqualValues(t, 2, cartCount)
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.Zero(t, orderCount)
}

func TestPlaceOnlineOrder_Success(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	p1 := seedProduct(t, db, 1, 10.5, 10)
	p2 := seedProduct(t, db, 2, 3.0, 4)

	require.NoError(t, db.Create(&models.CartItem{CustomerID: 7, ProductID: p1.ID, Quantity: 2}).Error)
	require.NoError(t, db.Create(&models.CartItem{CustomerID: 7, ProductID: p2.ID, Quantity: 4}).Error)

	placed, err := svc.PlaceOnlineOrder(context.Background(), 7, "some street", "card")
	require.NoError(t, err)

	require.Equal(t, models.OrderStatusPending, placed.Order.Status)
	require.Equal(t, models.PaymentStatusPending, placed.Order.PaymentStatus)
	require.Equal(t, models.OrderTypeOnline, placed.Order.OrderType)
	require.Equal(t, "some street", placed.Order.ShippingAddress)
	require.NotEmpty(t, placed.Order.OrderNumber)
	require.InDelta(t, 2*10.5+4*3.0, placed.Order.TotalAmount, 1e-9)
	require.Len(t, placed.Items, 2)

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", placed.Order.ID).Find(&items).Error)
	require.Len(t, items, 2)
	for _, it := range items {
		switch it.ProductID {
		case p1.ID:
			require.Equal(t, uint(2), it.Quantity)
			require.InDelta(t, 10.5, it.UnitPrice, 1e-9)
			require.Equal(t, uint(1), it.VendorID)
		case p2.ID:
			require.Equal(t, uint(4), it.Quantity)
			require.InDelta(t, 3.0, it.UnitPrice, 1e-9)
			require.Equal(t, uint(2), it.VendorID)
		default:
			t.Fatalf("unexpected product %d in order", it.ProductID)
		}
	}

	var got1, got2 models.Product
	require.NoError(t, db.First(&got1, p1.ID).Error)
	require.Equal(t, uint(8), got1.StockQuantity)
	require.NoError(t, db.First(&got2, p2.ID).Error)
	require.Equal(t, uint(0), got2.StockQuantity)

	var cartCount int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("customer_id = ?", 7).Count(&cartCount).Error)
	require.Zero(t, cartCount)
}

func TestPlaceOnlineOrder_LastUnitContention(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	p := seedProduct(t, db, 1, 20, 1)

	require.NoError(t, db.Create(&models.CartItem{CustomerID: 1, ProductID: p.ID, Quantity: 1}).Error)
	require.NoError(t, db.Create(&models.CartItem{CustomerID: 2, ProductID: p.ID, Quantity: 1}).Error)

	// The stock guard is the conditional decrement itself, so whichever
	// checkout reaches the row first wins and the other must fail; stock can
	// never go negative.
	_, err1 := svc.PlaceOnlineOrder(context.Background(), 1, "a", "card")
	_, err2 := svc.PlaceOnlineOrder(context.Background(), 2, "b", "card")

	require.NoError(t, err1)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err2, &stockErr)

	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	require.Equal(t, uint(0), got.StockQuantity)

	var orderCount int64
	require.NoError(t, db.Model(&models.Order{}).Count(&orderCount).Error)
	require.EqualValues(t, 1, orderCount)
}

func TestPlaceOnlineOrder_UsesFlashPrice(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	p := seedProduct(t, db, 1, 100, 5)
	p.FlashPrice = 60
	p.FlashEndsAt = time.Now().Add(time.Hour)
	require.NoError(t, db.Save(&p).Error)

	require.NoError(t, db.Create(&models.CartItem{CustomerID: 3, ProductID: p.ID, Quantity: 2}).Error)

	placed, err := svc.PlaceOnlineOrder(context.Background(), 3, "a", "card")
	require.NoError(t, err)
	require.InDelta(t, 120.0, placed.Order.TotalAmount, 1e-9)
	require.InDelta(t, 60.0, placed.Items[0].UnitPrice, 1e-9)
}

func TestPlaceInStoreOrder(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	p := seedProduct(t, db, 1, 15, 10)

	placed, err := svc.PlaceInStoreOrder(context.Background(), 5, p.ID, 3, "cash")
	require.NoError(t, err)
	require.Equal(t, models.OrderTypeInStore, placed.Order.OrderType)
	require.InDelta(t, 45.0, placed.Order.TotalAmount, 1e-9)

	// The in-store path shares the stock decrement with the online path.
	var got models.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	require.Equal(t, uint(7), got.StockQuantity)
}

func TestPlaceInStoreOrder_NotAvailableInStore(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	p := seedProduct(t, db, 1, 15, 10)
	p.AvailableInStore = false
	require.NoError(t, db.Save(&p).Error)

	_, err := svc.PlaceInStoreOrder(context.Background(), 5, p.ID, 1, "cash")
	require.ErrorIs(t, err, ErrNotInStore)
}

func TestPlaceInStoreOrder_UnknownProduct(t *testing.T) {
	db := initTestDB(t)
	svc := &Service{DB: db}

	_, err := svc.PlaceInStoreOrder(context.Background(), 5, 999, 1, "cash")
	require.True(t, errors.Is(err, ErrProductNotFound))
}
