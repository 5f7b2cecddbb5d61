package invoice

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the date encodings the remote API has been seen to send.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// UnmarshalJSON decodes a remote invoice. Dates that are empty, null or
// unparseable decode to the zero time instead of failing the record.
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	type plain Invoice
	aux := struct {
		*plain
		Date        json.RawMessage `json:"date"`
		CreatedAt   json.RawMessage `json:"createdAt"`
		TotalAmount json.RawMessage `json:"totalAmount"`
	}{plain: (*plain)(inv)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	inv.Date = looseTime(aux.Date)
	inv.CreatedAt = looseTime(aux.CreatedAt)
	inv.TotalAmount = nil
	if v, ok := looseNumber(aux.TotalAmount); ok {
		inv.TotalAmount = &v
	}
	return nil
}

// UnmarshalJSON decodes a line item. Quantity and price accept a number or a
// numeric string; anything else is 0.
func (li *LineItem) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return nil
	}
	type plain LineItem
	aux := struct {
		*plain
		Quantity json.RawMessage `json:"quantity"`
		Price    json.RawMessage `json:"price"`
	}{plain: (*plain)(li)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	li.Quantity, _ = looseNumber(aux.Quantity)
	li.Price, _ = looseNumber(aux.Price)
	return nil
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}

func looseNumber(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 || isNull(raw) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		v, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func looseTime(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
