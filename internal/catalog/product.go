package catalog

import (
	pkgerrors "github.com/racoonius-programmer/levelup-storefront/pkg/errors"
)

// Product is a catalog entry as served by the /productos resource. The
// code is unique and immutable; everything past name and price is
// optional merchandising data.
type Product struct {
	Code         string `json:"codigo"`
	Name         string `json:"nombre"`
	Price        int64  `json:"precio"`
	Category     string `json:"categoria,omitempty"`
	Manufacturer string `json:"fabricante,omitempty"`
	Distributor  string `json:"distribuidor,omitempty"`
	Brand        string `json:"marca,omitempty"`
	Material     string `json:"material,omitempty"`
	Description  string `json:"descripcion,omitempty"`
	Image        string `json:"imagen,omitempty"`
}

// Validate enforces the catalog invariants before a write is attempted.
func (p Product) Validate() error {
	if p.Code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product code is required")
	}
	return p.validateAttributes()
}

// validateAttributes checks everything except the code, which the
// server assigns on create.
func (p Product) validateAttributes() error {
	if p.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if p.Price < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price cannot be negative")
	}
	return nil
}
