package order

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/marketconnect/marketconnect/internal/service/checkout"
)

func (h *OrderHandler) publish(c echo.Context, key uint, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(key), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *OrderHandler) publishPlaced(c echo.Context, placed *checkout.PlacedOrder) {
	h.publish(c, placed.Order.CustomerID, map[string]any{
		"type":         "order_created",
		"order_id":     placed.Order.ID,
		"order_number": placed.Order.OrderNumber,
		"customer_id":  placed.Order.CustomerID,
		"order_type":   string(placed.Order.OrderType),
		"total":        placed.Order.TotalAmount,
	})
}
