package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/DaniDevGS/triven-shop/internal/models"
)

type ReceiptLine struct {
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

// Receipt summarizes a placed order for the buyer and the shop.
type Receipt struct {
	Code      string          `json:"code"`
	Buyer     string          `json:"buyer"`
	Email     string          `json:"-"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	Items     []ReceiptLine   `json:"items"`
}

func NewReceipt(order models.Order, buyer models.User) Receipt {
	r := Receipt{
		Code:      order.Code,
		Buyer:     buyer.Username,
		Total:     order.Subtotal,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
		Items:     make([]ReceiptLine, 0, len(order.Items)),
	}
	if buyer.Email != nil {
		r.Email = *buyer.Email
	}
	for _, item := range order.Items {
		r.Items = append(r.Items, ReceiptLine{
			Title:     item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total(),
		})
	}
	return r
}

// Message renders the plain-text summary the buyer forwards to the shop
// together with the payment capture.
func (r Receipt) Message() string {
	var b strings.Builder
	b.WriteString("New purchase order (pending validation)!\n")
	fmt.Fprintf(&b, "Order code: *%s*\n", r.Code)
	fmt.Fprintf(&b, "Customer: %s\n", r.Buyer)
	fmt.Fprintf(&b, "Total paid: $%s\n", r.Total.StringFixed(2))
	b.WriteString("Products:\n")
	for _, item := range r.Items {
		fmt.Fprintf(&b, "  - %s x%d ($%s)\n", item.Title, item.Quantity, item.Total.StringFixed(2))
	}
	b.WriteString("\n*I attached the payment capture to this conversation.*")
	return b.String()
}
