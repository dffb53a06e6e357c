package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusCompleted  Status = "completed"
)

var statuses = []Status{StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled, StatusCompleted}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

func statusList() string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Order is a placed purchase together with its line items.
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	UserName        *string         `json:"userName,omitempty"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Status          Status          `json:"status"`
	ShippingAddress *string         `json:"shipping_address"`
	ContactPhone    *string         `json:"contact_phone"`
	Comments        *string         `json:"comments"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []Item          `json:"items"`
}

// Item is one order line. Name and Price are copied from the product when
// the order is placed and do not follow later product edits.
type Item struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
}
