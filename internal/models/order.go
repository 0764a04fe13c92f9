package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending  OrderStatus = "PENDING"
	OrderApproved OrderStatus = "APPROVED"
	OrderRejected OrderStatus = "REJECTED"
)

type Order struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Code        string          `gorm:"size:8;uniqueIndex;not null" json:"code"`
	UserID      uint            `gorm:"index;not null" json:"user_id"`
	User        *User           `json:"user,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	Subtotal    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	Status      OrderStatus     `gorm:"size:10;not null;default:PENDING;index" json:"status"`
	ManagerNote string          `json:"manager_note,omitempty"`
	ProofImage  string          `json:"proof_image,omitempty"`
	Items       []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// LineItemSnapshot is copied from the product at purchase time and never
// rewritten afterwards.
type LineItemSnapshot struct {
	ProductName string          `gorm:"not null" json:"product_name"`
	Description string          `json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"unit_price"`
}

func (s LineItemSnapshot) Total() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

type OrderLineItem struct {
	ID               uint     `gorm:"primaryKey" json:"id"`
	OrderID          uint     `gorm:"index;not null" json:"order_id"`
	ProductID        *uint    `gorm:"index" json:"product_id"` // nulled when the product is deleted
	Product          *Product `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	LineItemSnapshot `gorm:"embedded"`
	CreatedAt        time.Time `json:"created_at"`
}

// ItemsTotal sums the snapshot totals of every line item.
func (o Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Total())
	}
	return total
}
