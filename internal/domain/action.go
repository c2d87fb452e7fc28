package domain

import "github.com/shopspring/decimal"

// OrderSide is the direction of an action or trade.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType selects how an action should be priced at the venue.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Action is one leg of an opportunity's execution plan. Legs execute in
// ascending Priority order; later legs may depend on earlier fills (e.g. the
// three legs of a triangular cycle).
type Action struct {
	ID        string
	Exchange  string
	Symbol    string
	Side      OrderSide
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	OrderType OrderType
	Priority  int
}

// Notional returns quantity * price for this leg.
func (a Action) Notional() decimal.Decimal {
	return a.Quantity.Mul(a.Price)
}
