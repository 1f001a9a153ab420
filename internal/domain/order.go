package domain

import "fmt"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType selects execution style.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the exchange-reported state of an order, normalised across
// venues.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open" // resting, nothing filled yet
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCanceled        OrderStatus = "canceled"
	OrderStatusRejected        OrderStatus = "rejected"
)

// Failed reports whether the order will never fill. A leg in this state must
// not be followed by its dependent leg.
func (s OrderStatus) Failed() bool {
	return s == OrderStatusCanceled || s == OrderStatusRejected
}

// OrderRequest is what the executor asks an adapter to place. Price is
// ignored for market orders and required for limit orders.
type OrderRequest struct {
	Symbol        string
	Type          OrderType
	Side          OrderSide
	Amount        float64
	Price         float64
	ClientOrderID string
}

// Validate checks the request before it reaches the wire.
func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidOrder)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0, got %g", ErrInvalidOrder, r.Amount)
	}
	switch r.Side {
	case OrderSideBuy, OrderSideSell:
	default:
		return fmt.Errorf("%w: side %q", ErrInvalidOrder, r.Side)
	}
	switch r.Type {
	case OrderTypeMarket:
	case OrderTypeLimit:
		if r.Price <= 0 {
			return ErrLimitOrderMissingPrice
		}
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidOrder, r.Type)
	}
	return nil
}

// OrderResult is the adapter's view of a placed order.
type OrderResult struct {
	ID           string
	Status       OrderStatus
	FilledAmount float64
	AveragePrice float64
}

// Confirmed reports whether the result proves an execution: a live status
// with a positive filled amount and a fill price. An acknowledged order
// whose fill is unknown is not confirmed.
func (r OrderResult) Confirmed() bool {
	return !r.Status.Failed() && r.FilledAmount > 0 && r.AveragePrice > 0
}
