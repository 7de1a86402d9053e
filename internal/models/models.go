package models

import (
	"fmt"
	"time"
)

type Vendor struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BusinessName string    `gorm:"not null"                 json:"business_name"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Phone        string    `json:"phone"`
	Address      string    `json:"address"`
	CreatedAt    time.Time `json:"created_at"`
}

type Customer struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"not null"                 json:"name"`
	Email        string    `gorm:"unique;not null"          json:"email"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Phone        string    `json:"phone"`
	AuthProvider string    `json:"auth_provider,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Product struct {
	ID               uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	VendorID         uint      `gorm:"index;not null"           json:"vendor_id"`
	Name             string    `gorm:"not null"                 json:"name"`
	Description      string    `json:"description"`
	Category         string    `gorm:"index"                    json:"category"`
	Price            float64   `gorm:"not null"                 json:"price"`
	StockQuantity    uint      `json:"stock_quantity"`
	AvailableOnline  bool      `gorm:"default:true"             json:"available_online"`
	AvailableInStore bool      `gorm:"default:false"            json:"available_in_store"`
	FlashPrice       float64   `json:"flash_price,omitempty"`
	FlashEndsAt      time.Time `json:"flash_ends_at,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// EffectivePrice is the unit price snapshotted into order items: the flash
// price while a deal is running, the list price otherwise.
func (p *Product) EffectivePrice(now time.Time) float64 {
	if p.FlashPrice > 0 && now.Before(p.FlashEndsAt) {
		return p.FlashPrice
	}
	return p.Price
}

type CartItem struct {
	ID         uint `gorm:"primaryKey"                                          json:"id"`
	CustomerID uint `gorm:"not null;uniqueIndex:idx_cart_customer_product"      json:"customer_id"`
	ProductID  uint `gorm:"not null;uniqueIndex:idx_cart_customer_product"      json:"product_id"`
	Quantity   uint `gorm:"default:1;check:quantity>0"                          json:"quantity"`
}

type Order struct {
	ID              uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber     string        `gorm:"unique;not null"          json:"order_number"`
	CustomerID      uint          `gorm:"index;not null"           json:"customer_id"`
	Status          OrderStatus   `gorm:"not null"                 json:"status"`
	PaymentStatus   PaymentStatus `gorm:"not null"                 json:"payment_status"`
	PaymentMethod   string        `json:"payment_method"`
	OrderType       OrderType     `gorm:"not null"                 json:"order_type"`
	ShippingAddress string        `json:"shipping_address"`
	TotalAmount     float64       `gorm:"not null"                 json:"total_amount"`
	CreatedAt       time.Time     `json:"created_at"`
}

type OrderItem struct {
	ID        uint    `gorm:"primaryKey"     json:"id"`
	OrderID   uint    `gorm:"index;not null" json:"order_id"`
	ProductID uint    `gorm:"not null"       json:"product_id"`
	VendorID  uint    `gorm:"index;not null" json:"vendor_id"`
	Quantity  uint    `gorm:"not null"       json:"quantity"`
	UnitPrice float64 `gorm:"not null"       json:"unit_price"`
}

type PasswordResetToken struct {
	ID         uint      `gorm:"primaryKey"      json:"id"`
	CustomerID uint      `gorm:"index;not null"  json:"customer_id"`
	Token      string    `gorm:"unique;not null" json:"token"`
	ExpiresAt  time.Time `gorm:"not null"        json:"expires_at"`
	Used       bool      `gorm:"default:false"   json:"used"`
}

type Role string

const (
	RoleVendor   Role = "vendor"
	RoleCustomer Role = "customer"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleVendor:
		return RoleVendor, nil
	case RoleCustomer:
		return RoleCustomer, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type OrderType string

const (
	OrderTypeOnline  OrderType = "online"
	OrderTypeInStore OrderType = "in_store"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusRefunded PaymentStatus = "refunded"
)
