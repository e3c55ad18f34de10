// Package validation provides request input validation for the forecast API.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
)

// ValidatorImpl implements the interfaces.Validator interface
type ValidatorImpl struct {
	catalog interfaces.Catalog
}

// NewValidator creates a new request validator backed by the catalog
func NewValidator(catalog interfaces.Catalog) interfaces.Validator {
	return &ValidatorImpl{catalog: catalog}
}

// ValidateMedicineID validates a medicine ID path parameter and checks it
// against the catalog.
// No regex used - strconv.ParseUint() validates numeric format for free
func (v *ValidatorImpl) ValidateMedicineID(input string) (uint, error) {
	trimmedInput := strings.TrimSpace(input)
	if trimmedInput == "" {
		return 0, fmt.Errorf("medicine ID cannot be empty")
	}

	// Reject if original input contained whitespace (spaces, tabs, etc.)
	if len(input) != len(trimmedInput) {
		return 0, fmt.Errorf("medicine ID contains invalid characters. Only numeric characters are allowed")
	}

	id, err := strconv.ParseUint(trimmedInput, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("medicine ID contains invalid characters. Only numeric characters are allowed")
	}
	if id == 0 {
		return 0, fmt.Errorf("medicine ID must be positive")
	}

	if _, ok := v.catalog.GetMedicinesMap()[uint(id)]; !ok {
		return 0, fmt.Errorf("unknown medicine ID: %d", id)
	}

	return uint(id), nil
}

// ValidateRegion validates a region query parameter against the configured
// markets. Matching is case-insensitive.
func (v *ValidatorImpl) ValidateRegion(input string) (entities.Region, error) {
	trimmedInput := strings.ToLower(strings.TrimSpace(input))
	if trimmedInput == "" {
		return "", fmt.Errorf("region cannot be empty")
	}

	for _, cfg := range v.catalog.GetRegionConfigs() {
		if string(cfg.Region) == trimmedInput {
			return cfg.Region, nil
		}
	}

	return "", fmt.Errorf("unknown region: %s", trimmedInput)
}
