package invoice

import (
	"fmt"
	"strings"
	"time"
)

// DraftDateLayout is the form encoding of Draft.Date.
const DraftDateLayout = "2006-01-02"

// Draft is the payload for creating or editing an invoice. A customer is
// either picked by ID or entered by name and phone. On an edit, nil Items
// leaves the items untouched while an empty slice clears them.
type Draft struct {
	CustomerID    string     `json:"customerId,omitempty"`
	CustomerName  string     `json:"customerName,omitempty"`
	CustomerPhone string     `json:"customerPhone,omitempty"`
	Date          string     `json:"date,omitempty"`
	Items         []LineItem `json:"items,omitzero"`
}

// NewLineItem returns a blank form row.
func NewLineItem() LineItem {
	return LineItem{Quantity: 1, Price: 0}
}

// Validate checks a draft before creation.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.CustomerID) == "" && strings.TrimSpace(d.CustomerName) == "" {
		return NewError(KindValidation, "Please select a customer", nil)
	}
	if len(d.Items) == 0 {
		return NewError(KindValidation, "at least one item is required", nil)
	}
	if err := validateDate(d.Date); err != nil {
		return err
	}
	return validateItems(d.Items)
}

// ValidateUpdate checks a draft before an edit. Edits may drop every item.
func (d Draft) ValidateUpdate() error {
	if err := validateDate(d.Date); err != nil {
		return err
	}
	return validateItems(d.Items)
}

func validateDate(value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(DraftDateLayout, value); err != nil {
		return NewError(KindValidation, fmt.Sprintf("date %q must be YYYY-MM-DD", value), err)
	}
	return nil
}

func validateItems(items []LineItem) error {
	for i, item := range items {
		if strings.TrimSpace(item.Name) == "" {
			return NewError(KindValidation, fmt.Sprintf("item %d: name is required", i+1), nil)
		}
		if item.Quantity < 0 || item.Price < 0 {
			return NewError(KindValidation, fmt.Sprintf("item %d: quantity and price must be non-negative", i+1), nil)
		}
	}
	return nil
}
