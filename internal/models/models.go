package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductKind tags the product variant. The value is written verbatim to the
// inventory file.
type ProductKind string

// Product kinds
const (
	KindPlain    ProductKind = "Product"
	KindMedicine ProductKind = "Medicine"
	KindCosmetic ProductKind = "Cosmetic"
)

// PriceScale is the number of decimal places prices are stored with
const PriceScale = 2

// DefaultSkinType is used for cosmetics created without a skin type
const DefaultSkinType = "All"

// ParseProductKind maps a persisted tag to a kind
func ParseProductKind(s string) (ProductKind, error) {
	switch ProductKind(s) {
	case KindPlain, KindMedicine, KindCosmetic:
		return ProductKind(s), nil
	}
	return "", fmt.Errorf("unknown product kind %q", s)
}

// Product is a sellable item. Kind selects which of the variant fields carry
// meaning: PrescriptionRequired for medicines, SkinType for cosmetics.
type Product struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Kind     ProductKind     `json:"kind"`

	PrescriptionRequired bool   `json:"prescription_required,omitempty"`
	SkinType             string `json:"skin_type,omitempty"`
}

// NewPlainProduct creates an untagged product
func NewPlainProduct(id int64, name string, price decimal.Decimal, quantity int) *Product {
	return &Product{ID: id, Name: name, Price: price, Quantity: quantity, Kind: KindPlain}
}

// NewMedicine creates a medicine product
func NewMedicine(id int64, name string, price decimal.Decimal, quantity int, prescriptionRequired bool) *Product {
	return &Product{
		ID:                   id,
		Name:                 name,
		Price:                price,
		Quantity:             quantity,
		Kind:                 KindMedicine,
		PrescriptionRequired: prescriptionRequired,
	}
}

// NewCosmetic creates a cosmetic product
func NewCosmetic(id int64, name string, price decimal.Decimal, quantity int, skinType string) *Product {
	if strings.TrimSpace(skinType) == "" {
		skinType = DefaultSkinType
	}
	return &Product{
		ID:       id,
		Name:     name,
		Price:    price,
		Quantity: quantity,
		Kind:     KindCosmetic,
		SkinType: skinType,
	}
}

// Validate checks the invariants shared by every variant
func (p *Product) Validate() error {
	if err := ValidateField("product name", p.Name); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: %s", ErrNegativePrice, p.Price.StringFixed(2))
	}
	if !p.Price.Equal(p.Price.Round(PriceScale)) {
		return fmt.Errorf("%w: price %s has more than %d decimal places", ErrInvalidField, p.Price.String(), PriceScale)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: stock cannot be negative (%d)", ErrInvalidQuantity, p.Quantity)
	}
	if _, err := ParseProductKind(string(p.Kind)); err != nil {
		return err
	}
	if p.Kind == KindCosmetic {
		if err := ValidateField("skin type", p.SkinType); err != nil {
			return err
		}
	}
	return nil
}

// IsAvailable reports whether qty units can be taken from stock
func (p *Product) IsAvailable(qty int) bool {
	return qty <= p.Quantity
}

// SuitableFor reports whether a cosmetic matches the given skin type.
// Non-cosmetics are never skin-type gated and always match.
func (p *Product) SuitableFor(skinType string) bool {
	if p.Kind != KindCosmetic {
		return true
	}
	return strings.EqualFold(p.SkinType, skinType)
}

// Clone returns a detached copy
func (p *Product) Clone() *Product {
	c := *p
	return &c
}

// Customer represents a roster entry
type Customer struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`

	// Placeholder marks a customer synthesized at load time for a dangling reference
	Placeholder bool `json:"placeholder,omitempty"`
}

// UnknownPhone is the phone carried by placeholder customers
const UnknownPhone = "Unknown"

// PlaceholderCustomer stands in for a customer that is no longer in the roster
func PlaceholderCustomer(id int64, name string) *Customer {
	return &Customer{ID: id, Name: name, Phone: UnknownPhone, Placeholder: true}
}

// ValidateField rejects empty values and values that would break the
// comma-separated record layout.
func ValidateField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrEmptyField, field)
	}
	if strings.ContainsAny(value, ",\r\n") {
		return fmt.Errorf("%w: %s must not contain commas or line breaks", ErrInvalidField, field)
	}
	return nil
}
