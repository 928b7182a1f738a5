package domain

const (
	CustomerActive   = "active"
	CustomerInactive = "inactive"
)

type Customer struct {
	ID           int64  `db:"id" json:"id"`
	Email        string `db:"email" json:"email"`
	BusinessName string `db:"business_name" json:"business_name"`
	ContactName  string `db:"contact_name" json:"contact_name"`
	Phone        string `db:"phone" json:"phone"`
	Address      string `db:"address" json:"address"`
	City         string `db:"city" json:"city"`
	PostalCode   string `db:"postal_code" json:"postal_code"`
	TaxID        string `db:"tax_id" json:"tax_id"`
	DiscountTier string `db:"discount_tier" json:"discount_tier"`
	Status       string `db:"status" json:"status"`
	CreatedAt    string `db:"created_at" json:"created_at"`
}
