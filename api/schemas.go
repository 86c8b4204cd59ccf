package api

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Request Schemas
// --------------------------------------------------------------------------

// Valid vatRate values for a menu item.
const (
	VATRateNormal  = "normal"
	VATRateReduced = "reduced"
	VATRateNone    = "none"
)

// MenuItem is one entry of the client submitted menu dataset.
type MenuItem struct {
	ID      int               `json:"id"`
	SysName string            `json:"sysName"`
	Name    map[string]string `json:"name"`
	Price   float64           `json:"price"`
	VATRate string            `json:"vatRate"`
}

// VATRate defines one named VAT rate of the submitted dataset.
type VATRate struct {
	RatePct   float64 `json:"ratePct"`
	IsDefault bool    `json:"isDefault"`
}

// DataARequest is the body of POST /data-a.
type DataARequest struct {
	Menus    []MenuItem         `json:"menus"`
	VATRates map[string]VATRate `json:"vatRates"`
}

// Validate checks the schema constraints of a submitted Data A document.
func (r *DataARequest) Validate() error {
	if r.Menus == nil {
		return fmt.Errorf("menus is required")
	}
	if r.VATRates == nil {
		return fmt.Errorf("vatRates is required")
	}

	for i, item := range r.Menus {
		if err := item.validate(); err != nil {
			return fmt.Errorf("menus[%d]: %v", i, err)
		}
	}

	for name, rate := range r.VATRates {
		if name == "" {
			return fmt.Errorf("vatRates: rate name must not be empty")
		}
		if rate.RatePct <= 0 {
			return fmt.Errorf("vatRates[%s]: ratePct must be greater than 0", name)
		}
	}

	return nil
}

func (m *MenuItem) validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("id must be greater than 0")
	}
	if m.SysName == "" {
		return fmt.Errorf("sysName must not be empty")
	}
	if len(m.Name) == 0 {
		return fmt.Errorf("name must contain at least one locale")
	}
	for locale, translation := range m.Name {
		if locale == "" || translation == "" {
			return fmt.Errorf("name must map non-empty locales to non-empty names")
		}
	}
	if m.Price <= 0 {
		return fmt.Errorf("price must be greater than 0")
	}
	switch m.VATRate {
	case VATRateNormal, VATRateReduced, VATRateNone:
	default:
		return fmt.Errorf("vatRate must be one of normal, reduced, none")
	}
	return nil
}

// --------------------------------------------------------------------------
// Response Schemas
// --------------------------------------------------------------------------

// StatusResponse is returned by successful writes and the health probe.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse carries a generic, non-leaking error message.
type ErrorResponse struct {
	Message string `json:"message"`
}

// NotFoundResponse is returned by GET /data-c while no merged document exists.
type NotFoundResponse struct {
	Detail string `json:"detail"`
}
