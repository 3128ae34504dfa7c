package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Decimal is a fixed-point amount stored in hundredths.
type Decimal int64

// NewDecimal builds a Decimal from whole units and hundredths.
func NewDecimal(units int64, hundredths int64) Decimal {
	if units < 0 {
		return Decimal(units*100 - hundredths)
	}
	return Decimal(units*100 + hundredths)
}

// String renders the amount with exactly two fraction digits.
func (d Decimal) String() string {
	v := int64(d)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Ticket is a help desk ticket.
type Ticket struct {
	ID           string     `json:"id" yaml:"id"`
	WorkspaceID  string     `json:"workspace_id" yaml:"workspace_id"`
	Subject      string     `json:"subject" yaml:"subject"`
	Status       string     `json:"status" yaml:"status"`
	Priority     string     `json:"priority" yaml:"priority"`
	Category     string     `json:"category" yaml:"category"`
	AssignedTo   string     `json:"assigned_to" yaml:"assigned_to"`
	ContactName  string     `json:"contact_name" yaml:"contact_name"`
	LocationName string     `json:"location_name" yaml:"location_name"`
	CreatedAt    time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" yaml:"updated_at"`
	DueAt        *time.Time `json:"due_at,omitempty" yaml:"due_at"`
}

// Contact is a person who raises tickets.
type Contact struct {
	ID          string    `json:"id" yaml:"id"`
	WorkspaceID string    `json:"workspace_id" yaml:"workspace_id"`
	Name        string    `json:"name" yaml:"name"`
	Email       string    `json:"email" yaml:"email"`
	Phone       string    `json:"phone" yaml:"phone"`
	Company     string    `json:"company" yaml:"company"`
	Title       string    `json:"title" yaml:"title"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Location is a site tickets and inventory are attached to.
type Location struct {
	ID          string    `json:"id" yaml:"id"`
	WorkspaceID string    `json:"workspace_id" yaml:"workspace_id"`
	Name        string    `json:"name" yaml:"name"`
	Address     string    `json:"address" yaml:"address"`
	City        string    `json:"city" yaml:"city"`
	Region      string    `json:"region" yaml:"region"`
	Country     string    `json:"country" yaml:"country"`
	PostalCode  string    `json:"postal_code" yaml:"postal_code"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// InventoryItem is a stocked asset or consumable.
type InventoryItem struct {
	ID           string    `json:"id" yaml:"id"`
	WorkspaceID  string    `json:"workspace_id" yaml:"workspace_id"`
	Name         string    `json:"name" yaml:"name"`
	SKU          string    `json:"sku" yaml:"sku"`
	Category     string    `json:"category" yaml:"category"`
	Quantity     int       `json:"quantity" yaml:"quantity"`
	UnitCost     Decimal   `json:"unit_cost" yaml:"unit_cost"`
	LocationName string    `json:"location_name" yaml:"location_name"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
}

// ParseDecimal reads an amount such as "12.5", "-3.05" or "7". More than two
// fraction digits is an error.
func ParseDecimal(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	digits := s
	neg := false
	if digits != "" && (digits[0] == '-' || digits[0] == '+') {
		neg = digits[0] == '-'
		digits = digits[1:]
	}

	whole, frac, _ := strings.Cut(digits, ".")
	if !onlyDigits(whole) || !onlyDigits(frac) || whole+frac == "" {
		return 0, fmt.Errorf("invalid decimal %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("decimal %q has more than two fraction digits", s)
	}
	frac += strings.Repeat("0", 2-len(frac))

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal %q: %w", s, err)
	}

	d := units*100 + cents
	if neg {
		d = -d
	}
	return Decimal(d), nil
}

func onlyDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// UnmarshalYAML reads fixture amounts written as plain numbers.
func (d *Decimal) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := ParseDecimal(raw)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
