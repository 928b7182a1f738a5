package domain

const (
	QuotePending   = "pending"
	QuoteReviewing = "reviewing"
	QuoteQuoted    = "quoted"
	QuoteAccepted  = "accepted"
	QuoteRejected  = "rejected"
)

var quoteTransitions = map[string][]string{
	QuotePending:   {QuoteReviewing, QuoteRejected},
	QuoteReviewing: {QuoteQuoted, QuoteRejected},
	QuoteQuoted:    {QuoteAccepted, QuoteRejected},
}

func CanMoveQuote(from, to string) bool { return allowed(quoteTransitions, from, to) }

func allowed(m map[string][]string, from, to string) bool {
	for _, s := range m[from] {
		if s == to {
			return true
		}
	}
	return false
}

type QuoteRequest struct {
	ID           int64       `db:"id" json:"id"`
	QuoteNumber  string      `db:"quote_number" json:"quote_number"`
	CustomerID   *int64      `db:"customer_id" json:"customer_id,omitempty"`
	Email        string      `db:"email" json:"email"`
	BusinessName string      `db:"business_name" json:"business_name"`
	Notes        string      `db:"notes" json:"notes"`
	Status       string      `db:"status" json:"status"`
	QuotedTotal  *float64    `db:"quoted_total" json:"quoted_total,omitempty"`
	CreatedAt    string      `db:"created_at" json:"created_at"`
	UpdatedAt    string      `db:"updated_at" json:"updated_at"`
	Items        []QuoteItem `db:"-" json:"items,omitempty"`
}

type QuoteItem struct {
	ID          int64   `db:"id" json:"id"`
	QuoteID     int64   `db:"quote_id" json:"quote_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	GTIN        string  `db:"gtin" json:"gtin"`
	ProductName string  `db:"product_name" json:"product_name"`
	Quantity    int     `db:"quantity" json:"quantity"`
	UnitPrice   float64 `db:"unit_price" json:"unit_price"`
}

type QuoteInput struct {
	CustomerID   *int64        `json:"customer_id"`
	Email        string        `json:"email"`
	BusinessName string        `json:"business_name"`
	Notes        string        `json:"notes"`
	Items        []LineRequest `json:"items"`
}
