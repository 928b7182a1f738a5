package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Text decodes a JSON string, number, bool or null into its textual form.
// Supplier payloads are not consistent about quoting prices and stock.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*t = Text(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = Text(strconv.FormatBool(v))
	return nil
}

func (t Text) String() string { return string(t) }

// Amount is a money value as the supplier sent it. JSON numbers are exact
// and skip the separator guessing that quoted strings need.
type Amount struct {
	Text   string
	Number bool
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9')) {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*a = Amount{Text: n.String(), Number: true}
		return nil
	}
	var t Text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = Amount{Text: t.String()}
	return nil
}

// Value reads the amount. Unreadable or negative amounts are 0.
func (a Amount) Value() float64 {
	if !a.Number {
		return ParsePrice(a.Text)
	}
	f, err := strconv.ParseFloat(a.Text, 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}

// RawProduct is a supplier record before validation. Nothing in it is trusted.
type RawProduct struct {
	GTIN        Text `json:"gtin"`
	Name        Text `json:"name"`
	Brand       Text `json:"brand"`
	Category    Text `json:"category"`
	Price       Amount `json:"price"`
	Inventory   Text `json:"inventory"`
	Supplier    Text `json:"supplier"`
	Description Text `json:"description"`
	ImageURL    Text `json:"image_url"`
	ProductURL  Text `json:"url"`
}

// SearchResponse is one page of the supplier's variant search.
type SearchResponse struct {
	Count   int          `json:"count"`
	Results []RawProduct `json:"results"`
}
