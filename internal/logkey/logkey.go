// Package logkey holds the attribute keys shared by every slog call site.
package logkey

const (
	TraceID   = "trace_id"
	ERROR     = "error"
	UserID    = "user_id"
	OrderID   = "order_id"
	OrderCode = "order_code"
	ProductID = "product_id"
	Status    = "status"
)
