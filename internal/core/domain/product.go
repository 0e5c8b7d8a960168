package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CalculationKind names a premium calculation strategy as persisted.
type CalculationKind string

const (
	CalculationPercentageOfValue CalculationKind = "PERCENTAGE_OF_VALUE"
	CalculationFlatRate          CalculationKind = "FLAT_RATE"
)

var hundred = decimal.NewFromInt(100)

// ErrInsuredValueRequired is returned when a value-based premium has no value to work on.
var ErrInsuredValueRequired = errors.New("insured value must be greater than zero")

// PremiumCalculation computes the premium for a product.
type PremiumCalculation interface {
	Kind() CalculationKind
	// Rate is the persisted parameter: a percentage or a flat amount.
	Rate() decimal.Decimal
	Premium(insuredValue decimal.Decimal) (decimal.Decimal, error)
}

// PercentageOfValue charges RatePercent of the insured value.
type PercentageOfValue struct {
	RatePercent decimal.Decimal
}

func (c PercentageOfValue) Kind() CalculationKind { return CalculationPercentageOfValue }
func (c PercentageOfValue) Rate() decimal.Decimal { return c.RatePercent }

func (c PercentageOfValue) Premium(insuredValue decimal.Decimal) (decimal.Decimal, error) {
	if !insuredValue.IsPositive() {
		return decimal.Zero, ErrInsuredValueRequired
	}
	return insuredValue.Mul(c.RatePercent).Div(hundred).Round(2), nil
}

// FlatRate charges a fixed amount regardless of insured value.
type FlatRate struct {
	Amount decimal.Decimal
}

func (c FlatRate) Kind() CalculationKind { return CalculationFlatRate }
func (c FlatRate) Rate() decimal.Decimal { return c.Amount }

func (c FlatRate) Premium(decimal.Decimal) (decimal.Decimal, error) {
	return c.Amount.Round(2), nil
}

// NewPremiumCalculation rebuilds a strategy from its persisted form.
func NewPremiumCalculation(kind CalculationKind, rate decimal.Decimal) (PremiumCalculation, error) {
	if rate.IsNegative() {
		return nil, fmt.Errorf("negative premium rate %s", rate)
	}
	switch kind {
	case CalculationPercentageOfValue:
		return PercentageOfValue{RatePercent: rate}, nil
	case CalculationFlatRate:
		return FlatRate{Amount: rate}, nil
	default:
		return nil, fmt.Errorf("unknown premium calculation %q", kind)
	}
}

// Charges is the premium breakdown of a policy.
type Charges struct {
	Premium decimal.Decimal
	Tax     decimal.Decimal
	Total   decimal.Decimal
}

// ComputeCharges applies the strategy and a tax rate given in percent.
func ComputeCharges(calc PremiumCalculation, insuredValue, taxRatePercent decimal.Decimal) (Charges, error) {
	premium, err := calc.Premium(insuredValue)
	if err != nil {
		return Charges{}, err
	}
	tax := premium.Mul(taxRatePercent).Div(hundred).Round(2)
	return Charges{Premium: premium, Tax: tax, Total: premium.Add(tax)}, nil
}

// Commission is the agent's share of a premium.
func Commission(premium, rate decimal.Decimal) decimal.Decimal {
	return premium.Mul(rate).Round(2)
}

// Product is an insurance product offered by an insurer through a manager.
// Name doubles as the certificate stock's product class.
type Product struct {
	ID          uuid.UUID          `json:"id"`
	ManagerID   uuid.UUID          `json:"manager_id"`
	InsurerID   uuid.UUID          `json:"insurer_id"`
	Name        string             `json:"name"`
	Calculation PremiumCalculation `json:"-"`
	CreatedAt   time.Time          `json:"created_at"`
}

// StockKey returns the inventory key certificates for this product are drawn from.
func (p *Product) StockKey() StockKey {
	return StockKey{ManagerID: p.ManagerID, InsurerID: p.InsurerID, ProductClass: p.Name}
}
