// Package checkout owns the order placement transaction: cart snapshot,
// stock reservation, order + order item inserts and cart clearing happen
// inside one database transaction on one session.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/marketconnect/marketconnect/internal/logging"
	"github.com/marketconnect/marketconnect/internal/models"
)

var (
	ErrEmptyCart       = errors.New("no items in cart")
	ErrProductNotFound = errors.New("product not found")
	ErrNotInStore      = errors.New("product is not available in store")
)

// InsufficientStockError names the product the customer cannot have.
type InsufficientStockError struct {
	ProductID uint
	Name      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (id %d)", e.Name, e.ProductID)
}

type Service struct {
	DB *gorm.DB
}

type line struct {
	product  models.Product
	quantity uint
}

type PlacedOrder struct {
	Order models.Order      `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// PlaceOnlineOrder converts the customer's cart into an order. The cart is
// read server side; the caller only supplies shipping and payment details.
func (s *Service) PlaceOnlineOrder(ctx context.Context, customerID uint, shippingAddress, paymentMethod string) (*PlacedOrder, error) {
	return s.place(ctx, customerID, models.OrderTypeOnline, shippingAddress, paymentMethod, func(tx *gorm.DB) ([]line, error) {
		var items []models.CartItem
		if err := tx.Where("customer_id = ?", customerID).Find(&items).Error; err != nil {
			return nil, err
		}
		if len(items) == 0 {
			return nil, ErrEmptyCart
		}

		lines := make([]line, 0, len(items))
		for _, it := range items {
			var p models.Product
			if err := tx.First(&p, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, ErrProductNotFound
				}
				return nil, err
			}
			lines = append(lines, line{product: p, quantity: it.Quantity})
		}
		return lines, nil
	})
}

// PlaceInStoreOrder runs the same transactional routine for a single
// store-available product, so both order types share the stock guarantees.
func (s *Service) PlaceInStoreOrder(ctx context.Context, customerID, productID, quantity uint, paymentMethod string) (*PlacedOrder, error) {
	if quantity < 1 {
		quantity = 1
	}
	return s.place(ctx, customerID, models.OrderTypeInStore, "", paymentMethod, func(tx *gorm.DB) ([]line, error) {
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProductNotFound
			}
			return nil, err
		}
		if !p.AvailableInStore {
			return nil, ErrNotInStore
		}
		return []line{{product: p, quantity: quantity}}, nil
	})
}

func (s *Service) place(ctx context.Context, customerID uint, orderType models.OrderType, shippingAddress, paymentMethod string, loadLines func(tx *gorm.DB) ([]line, error)) (*PlacedOrder, error) {
	l := logging.FromContext(ctx).With("svc", "checkout.place", "customer_id", customerID, "order_type", orderType)

	var placed PlacedOrder

	txErr := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines, err := loadLines(tx)
		if err != nil {
			return err
		}

		now := time.Now()
		var total float64
		for _, ln := range lines {
			// One conditional UPDATE per line. Zero affected rows means the
			// stock guard failed; the surrounding transaction rolls back every
			// decrement already applied.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", ln.product.ID, ln.quantity).
				UpdateColumn("stock_quantity", gorm.Expr("stock_quantity - ?", ln.quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &InsufficientStockError{ProductID: ln.product.ID, Name: ln.product.Name}
			}
			total += ln.product.EffectivePrice(now) * float64(ln.quantity)
		}

		placed.Order = models.Order{
			OrderNumber:     uuid.NewString(),
			CustomerID:      customerID,
			Status:          models.OrderStatusPending,
			PaymentStatus:   models.PaymentStatusPending,
			PaymentMethod:   paymentMethod,
			OrderType:       orderType,
			ShippingAddress: shippingAddress,
			TotalAmount:     total,
		}
		if err := tx.Create(&placed.Order).Error; err != nil {
			return err
		}

		placed.Items = make([]models.OrderItem, 0, len(lines))
		for _, ln := range lines {
			oi := models.OrderItem{
				OrderID:   placed.Order.ID,
				ProductID: ln.product.ID,
				VendorID:  ln.product.VendorID,
				Quantity:  ln.quantity,
				UnitPrice: ln.product.EffectivePrice(now),
			}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
			placed.Items = append(placed.Items, oi)
		}

		if orderType == models.OrderTypeOnline {
			if err := tx.Where("customer_id = ?", customerID).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if txErr != nil {
		return nil, txErr
	}

	l.Info("order_placed", "order_id", placed.Order.ID, "total", placed.Order.TotalAmount)
	return &placed, nil
}
