package product

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/klimatholod/store-backend/internal/apperror"
	"github.com/shopspring/decimal"
)

// MaxImages is the number of image slots a product has.
const MaxImages = 3

// Product maps to the `products` table. Specs and Image are stored as JSON
// text.
type Product struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	FullDescription string          `json:"fullDescription"`
	Price           decimal.Decimal `json:"price"`
	Discount        decimal.Decimal `json:"discount"`
	Category        string          `json:"category"`
	Specs           []Spec          `json:"specs"`
	Image           []string        `json:"image"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Spec is one characteristic row, e.g. {"name": "Power", "value": "2.5 kW"}.
type Spec map[string]any

// DiscountEntry is one element of a bulk discount request, kept as raw JSON
// so it can be checked while the update transaction is open.
type DiscountEntry struct {
	ID       json.RawMessage `json:"id"`
	Discount json.RawMessage `json:"discount"`
}

// parse returns the product id and the discount rounded to two places. The id
// may come as a number or as a numeric string.
func (e DiscountEntry) parse() (int64, decimal.Decimal, error) {
	rawID := strings.TrimSpace(string(e.ID))
	var quoted string
	if json.Unmarshal(e.ID, &quoted) == nil {
		rawID = strings.TrimSpace(quoted)
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		return 0, decimal.Zero, apperror.Validation(fmt.Sprintf("invalid product id %s", string(e.ID)))
	}
	raw := strings.TrimSpace(string(e.Discount))
	if !isJSONNumber(raw) {
		return 0, decimal.Zero, apperror.Validation(fmt.Sprintf("discount for product %d must be a number", id))
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, decimal.Zero, apperror.Validation(fmt.Sprintf("discount for product %d must be a number", id))
	}
	return id, d.Round(2), nil
}

func isJSONNumber(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// decodeList parses a JSON text column, falling back to an empty list on
// NULL or malformed content.
func decodeList[T any](raw string) []T {
	out := []T{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []T{}
	}
	return out
}

func encodeList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
