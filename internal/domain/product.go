package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProductKind string

const (
	KindTelevision     ProductKind = "Television"
	KindAirConditioner ProductKind = "AirConditioner"
	KindWashingMachine ProductKind = "WashingMachine"
)

// ParseProductKind accepts the kind name case-insensitively.
func ParseProductKind(s string) (ProductKind, error) {
	for _, k := range []ProductKind{KindTelevision, KindAirConditioner, KindWashingMachine} {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown product type %q", ErrInvalidProduct, s)
}

// Spec carries the attributes that only exist for one product kind.
type Spec interface {
	Kind() ProductKind
}

type TelevisionSpec struct {
	ScreenSize string `json:"screenSize"`
}

type AirConditionerSpec struct {
	Scope string `json:"scope"`
}

type WashingMachineSpec struct {
	Capacity string `json:"capacity"`
}

func (TelevisionSpec) Kind() ProductKind     { return KindTelevision }
func (AirConditionerSpec) Kind() ProductKind { return KindAirConditioner }
func (WashingMachineSpec) Kind() ProductKind { return KindWashingMachine }

// Product holds the fields shared by every kind plus its kind-specific Spec.
// The order core only reads ID, Name, Price, Stock and Image.
type Product struct {
	ID          int64
	Name        string
	Price       decimal.Decimal
	Stock       int
	Brand       string
	Description string
	Power       int
	Material    string
	Image       string
	Spec        Spec
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p *Product) Kind() ProductKind {
	if p.Spec == nil {
		return ""
	}
	return p.Spec.Kind()
}

type productJSON struct {
	ID             int64           `json:"id"`
	Type           ProductKind     `json:"type"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	Brand          string          `json:"brand,omitempty"`
	Description    string          `json:"description,omitempty"`
	Power          int             `json:"power"`
	Material       string          `json:"material,omitempty"`
	Image          string          `json:"image,omitempty"`
	Specifications Spec            `json:"specifications"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(productJSON{
		ID:             p.ID,
		Type:           p.Kind(),
		Name:           p.Name,
		Price:          p.Price,
		Stock:          p.Stock,
		Brand:          p.Brand,
		Description:    p.Description,
		Power:          p.Power,
		Material:       p.Material,
		Image:          p.Image,
		Specifications: p.Spec,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	})
}

// UnmarshalJSON restores the Spec from the type tag so cached products
// round-trip.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		productJSON
		Specifications json.RawMessage `json:"specifications"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product{
		ID:          raw.ID,
		Name:        raw.Name,
		Price:       raw.Price,
		Stock:       raw.Stock,
		Brand:       raw.Brand,
		Description: raw.Description,
		Power:       raw.Power,
		Material:    raw.Material,
		Image:       raw.Image,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
	}
	if raw.Type == "" {
		return nil
	}
	var spec Spec
	switch raw.Type {
	case KindTelevision:
		var s TelevisionSpec
		if err := json.Unmarshal(raw.Specifications, &s); err != nil {
			return err
		}
		spec = s
	case KindAirConditioner:
		var s AirConditionerSpec
		if err := json.Unmarshal(raw.Specifications, &s); err != nil {
			return err
		}
		spec = s
	case KindWashingMachine:
		var s WashingMachineSpec
		if err := json.Unmarshal(raw.Specifications, &s); err != nil {
			return err
		}
		spec = s
	default:
		return fmt.Errorf("%w: unknown product type %q", ErrInvalidProduct, raw.Type)
	}
	p.Spec = spec
	return nil
}

// SpecAttributes holds the kind-specific attributes as they arrive from a
// request or a table row. Only the one matching the kind is used.
type SpecAttributes struct {
	ScreenSize string `json:"screenSize"`
	Scope      string `json:"scope"`
	Capacity   string `json:"capacity"`
}

// ResolveSpec builds the Spec for kind, requiring its attribute to be set.
func ResolveSpec(kind ProductKind, attrs SpecAttributes) (Spec, error) {
	switch kind {
	case KindTelevision:
		if attrs.ScreenSize == "" {
			return nil, fmt.Errorf("%w: screenSize is required for %s", ErrInvalidProduct, kind)
		}
		return TelevisionSpec{ScreenSize: attrs.ScreenSize}, nil
	case KindAirConditioner:
		if attrs.Scope == "" {
			return nil, fmt.Errorf("%w: scope is required for %s", ErrInvalidProduct, kind)
		}
		return AirConditionerSpec{Scope: attrs.Scope}, nil
	case KindWashingMachine:
		if attrs.Capacity == "" {
			return nil, fmt.Errorf("%w: capacity is required for %s", ErrInvalidProduct, kind)
		}
		return WashingMachineSpec{Capacity: attrs.Capacity}, nil
	}
	return nil, fmt.Errorf("%w: unknown product type %q", ErrInvalidProduct, kind)
}

// Attributes flattens a Spec back into its storage columns.
func Attributes(spec Spec) SpecAttributes {
	switch s := spec.(type) {
	case TelevisionSpec:
		return SpecAttributes{ScreenSize: s.ScreenSize}
	case AirConditionerSpec:
		return SpecAttributes{Scope: s.Scope}
	case WashingMachineSpec:
		return SpecAttributes{Capacity: s.Capacity}
	}
	return SpecAttributes{}
}
