package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency  = fmt.Errorf("%w: invalid currency code", ErrValidation)
	ErrAmountTooLarge   = fmt.Errorf("%w: amount exceeds maximum allowed", ErrValidation)
	ErrAmountTooPrecise = fmt.Errorf("%w: amount has too many decimal places", ErrValidation)
	ErrInvalidIDFormat  = fmt.Errorf("%w: invalid ID format", ErrValidation)
	ErrInvalidSchedule  = fmt.Errorf("%w: end date precedes start date", ErrValidation)
)

// Validation constants
const (
	MaxAmount       = "1000000000000" // 1 trillion
	MaxAmountScale  = 6
	MaxIDLength     = 64
	MaxReasonLength = 512
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CNY": true, "AUD": true, "CAD": true, "CHF": true,
	"SEK": true, "NZD": true, "KRW": true, "SGD": true,
	"NOK": true, "MXN": true, "INR": true, "BRL": true,
	"ZAR": true, "TRY": true, "HKD": true, "PLN": true,
}

var idRegex = regexp.MustCompile(`^[A-Za-z0-9_\-:.]+$`)

var maxAmount = decimal.RequireFromString(MaxAmount)

// NormalizeCurrency upper-cases and validates a currency code.
func NormalizeCurrency(currency string) (string, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[currency] {
		return "", fmt.Errorf("%w: %q is not a supported ISO 4217 code", ErrInvalidCurrency, currency)
	}

	return currency, nil
}

// ValidateAmount checks that a money amount is positive and representable.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxAmount)
	}

	if !amount.Equal(amount.Truncate(MaxAmountScale)) {
		return fmt.Errorf("%w: at most %d allowed", ErrAmountTooPrecise, MaxAmountScale)
	}

	return nil
}

// ValidateID checks user and campaign identifiers.
func ValidateID(kind, id string) error {
	if id == "" || len(id) > MaxIDLength || !idRegex.MatchString(id) {
		return fmt.Errorf("%w: %s %q", ErrInvalidIDFormat, kind, id)
	}
	return nil
}

// ValidateReason bounds free-form reason text stored in the journal.
func ValidateReason(reason string) error {
	if len(reason) > MaxReasonLength {
		return fmt.Errorf("%w: reason exceeds %d characters", ErrValidation, MaxReasonLength)
	}
	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
