package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klimatholod/store-backend/internal/apperror"
)

// NoData replaces every absent or empty text field of a new notification.
const NoData = "no data"

type Notification struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email"`
	Address    string    `json:"address"`
	Items      string    `json:"items"`
	TotalPrice string    `json:"totalPrice"`
	Comments   string    `json:"comments"`
	Type       *string   `json:"type"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

func orNoData(s string) string {
	if s == "" {
		return NoData
	}
	return s
}

// withDefaults fills empty fields. Type stays as sent, even when empty.
func withDefaults(n Notification) Notification {
	n.Name = orNoData(n.Name)
	n.Phone = orNoData(n.Phone)
	n.Email = orNoData(n.Email)
	n.Address = orNoData(n.Address)
	n.Items = orNoData(n.Items)
	n.TotalPrice = orNoData(n.TotalPrice)
	n.Comments = orNoData(n.Comments)
	n.IsRead = false
	return n
}

func notFound(id int64) error {
	return apperror.NotFound(fmt.Sprintf("notification with id %d not found", id))
}

// text accepts a JSON string as is and keeps any other non-null value
// (a number, a list of cart items) as its JSON text.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(s)
		return nil
	}
	*t = text(b)
	return nil
}
