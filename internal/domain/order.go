package domain

const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered},
}

// CanMoveOrder reports whether an order may go from one status to another.
func CanMoveOrder(from, to string) bool { return allowed(orderTransitions, from, to) }

type Order struct {
	ID           int64       `db:"id" json:"id"`
	OrderNumber  string      `db:"order_number" json:"order_number"`
	CustomerID   int64       `db:"customer_id" json:"customer_id"`
	BusinessName string      `db:"business_name" json:"business_name"`
	TotalAmount  float64     `db:"total_amount" json:"total_amount"`
	Status       string      `db:"status" json:"status"`
	Notes        string      `db:"notes" json:"notes"`
	OrderDate    string      `db:"order_date" json:"order_date"`
	DeliveryDate string      `db:"delivery_date" json:"delivery_date,omitempty"`
	Items        []OrderItem `db:"-" json:"items,omitempty"`
}

// OrderItem snapshots the product at order time; later catalog changes do not touch it.
type OrderItem struct {
	ID          int64   `db:"id" json:"id"`
	OrderID     int64   `db:"order_id" json:"order_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	GTIN        string  `db:"gtin" json:"gtin"`
	ProductName string  `db:"product_name" json:"product_name"`
	Quantity    int     `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
	LineTotal   float64 `db:"line_total" json:"line_total"`
}

type LineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type OrderInput struct {
	CustomerID   int64         `json:"customer_id"`
	Items        []LineRequest `json:"items"`
	Notes        string        `json:"notes"`
	DeliveryDate string        `json:"delivery_date"`
}
