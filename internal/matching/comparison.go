package matching

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MatchResult classifies a comparison outcome by escalation severity. The
// constant order is the severity order used when reducing per-field results
// into an overall status.
type MatchResult int

const (
	PerfectMatch MatchResult = iota
	WithinTolerance
	EscalationRequired
)

// String returns the wire representation of the result.
func (r MatchResult) String() string {
	switch r {
	case PerfectMatch:
		return "perfect_match"
	case WithinTolerance:
		return "within_tolerance"
	case EscalationRequired:
		return "escalation_required"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the result as its string form.
func (r MatchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes the string form back into a MatchResult.
func (r *MatchResult) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "perfect_match":
		*r = PerfectMatch
	case "within_tolerance":
		*r = WithinTolerance
	case "escalation_required":
		*r = EscalationRequired
	default:
		return fmt.Errorf("unknown match result %q", s)
	}
	return nil
}

// maxSeverity returns the more severe of two results.
func maxSeverity(a, b MatchResult) MatchResult {
	if b > a {
		return b
	}
	return a
}

// Default tolerance policy. These literals are AP business policy; they must
// not drift without sign-off from the finance team.
const (
	DefaultAmountTolerancePercent    = 5.0
	DefaultPaymentTermsToleranceDays = 1
)

// Tolerances configures how much variance a comparison accepts before
// escalating.
type Tolerances struct {
	// AmountTolerancePercent is the maximum percentage deviation of the
	// invoice amount from the PO amount still auto-approvable.
	AmountTolerancePercent decimal.Decimal

	// PaymentTermsToleranceDays is the maximum difference in payment term
	// days still auto-approvable.
	PaymentTermsToleranceDays int
}

// DefaultTolerances returns the standard AP tolerance policy.
func DefaultTolerances() Tolerances {
	return Tolerances{
		AmountTolerancePercent:    decimal.NewFromFloat(DefaultAmountTolerancePercent),
		PaymentTermsToleranceDays: DefaultPaymentTermsToleranceDays,
	}
}

// Validate checks that the tolerances are usable.
func (t Tolerances) Validate() error {
	if t.AmountTolerancePercent.IsNegative() {
		return fmt.Errorf("amount tolerance percent cannot be negative: %s", t.AmountTolerancePercent)
	}
	if t.PaymentTermsToleranceDays < 0 {
		return fmt.Errorf("payment terms tolerance days cannot be negative: %d", t.PaymentTermsToleranceDays)
	}
	return nil
}

// ComparisonOutcome is the result of comparing one field between an invoice
// and its matched PO. Only the detail fields relevant to the compared field
// are populated.
type ComparisonOutcome struct {
	Result MatchResult `json:"result"`
	Reason string      `json:"reason"`

	InvoiceAmount   *decimal.Decimal `json:"invoice_amount,omitempty"`
	POAmount        *decimal.Decimal `json:"po_amount,omitempty"`
	Variance        *decimal.Decimal `json:"variance,omitempty"`
	VariancePercent *decimal.Decimal `json:"variance_percent,omitempty"`

	InvoiceCurrency *string `json:"invoice_currency,omitempty"`
	POCurrency      *string `json:"po_currency,omitempty"`

	InvoiceDays  *int `json:"invoice_days,omitempty"`
	PODays       *int `json:"po_days,omitempty"`
	VarianceDays *int `json:"variance_days,omitempty"`

	InvoiceVendor *string `json:"invoice_vendor,omitempty"`
	POVendor      *string `json:"po_vendor,omitempty"`
}

// Comparator applies the tolerance policy to individual invoice fields.
type Comparator struct {
	tolerances Tolerances
}

// NewComparator creates a comparator with the given tolerances.
func NewComparator(tolerances Tolerances) *Comparator {
	return &Comparator{tolerances: tolerances}
}

// CompareAmounts compares the invoice total against the PO total. Variance is
// signed (invoice minus PO); the tolerance check uses its absolute value as a
// percentage of the PO amount. A zero PO amount with a non-zero invoice has
// no meaningful percentage and always escalates.
func (c *Comparator) CompareAmounts(invoiceAmount, poAmount *decimal.Decimal) ComparisonOutcome {
	if invoiceAmount == nil || poAmount == nil {
		return ComparisonOutcome{
			Result:        EscalationRequired,
			Reason:        "Missing amount data - cannot compare",
			InvoiceAmount: invoiceAmount,
			POAmount:      poAmount,
		}
	}

	variance := invoiceAmount.Sub(*poAmount)
	outcome := ComparisonOutcome{
		InvoiceAmount: invoiceAmount,
		POAmount:      poAmount,
		Variance:      roundedPtr(variance),
	}

	if poAmount.IsZero() {
		if invoiceAmount.IsZero() {
			outcome.Result = PerfectMatch
			outcome.Reason = "Both amounts are zero - perfect match"
			outcome.VariancePercent = roundedPtr(decimal.Zero)
			return outcome
		}
		outcome.Result = EscalationRequired
		outcome.Reason = "PO amount is zero but invoice has a non-zero amount"
		return outcome
	}

	variancePercent := variance.Abs().Div(*poAmount).Mul(decimal.NewFromInt(100))
	outcome.VariancePercent = roundedPtr(variancePercent)

	switch {
	case variance.IsZero():
		outcome.Result = PerfectMatch
		outcome.Reason = "Amounts match exactly"
	case variancePercent.LessThanOrEqual(c.tolerances.AmountTolerancePercent):
		outcome.Result = WithinTolerance
		outcome.Reason = fmt.Sprintf("Amount variance %s%% is within the %s%% tolerance",
			outcome.VariancePercent, c.tolerances.AmountTolerancePercent)
	default:
		outcome.Result = EscalationRequired
		outcome.Reason = fmt.Sprintf("Amount variance %s%% exceeds the %s%% tolerance",
			outcome.VariancePercent, c.tolerances.AmountTolerancePercent)
	}
	return outcome
}

// CompareCurrencies compares currency codes case-insensitively. Currency is
// binary: any mismatch needs FX sign-off, there is no tolerance band.
func (c *Comparator) CompareCurrencies(invoiceCurrency, poCurrency *string) ComparisonOutcome {
	if invoiceCurrency == nil || poCurrency == nil {
		return ComparisonOutcome{
			Result: EscalationRequired,
			Reason: "Missing currency data - cannot compare",
		}
	}

	normInvoice := strings.ToUpper(strings.TrimSpace(*invoiceCurrency))
	normPO := strings.ToUpper(strings.TrimSpace(*poCurrency))
	outcome := ComparisonOutcome{
		InvoiceCurrency: &normInvoice,
		POCurrency:      &normPO,
	}

	if normInvoice == normPO {
		outcome.Result = PerfectMatch
		outcome.Reason = "Currencies match"
	} else {
		outcome.Result = EscalationRequired
		outcome.Reason = "Currency mismatch detected - requires FX approval"
	}
	return outcome
}

// ComparePaymentTerms compares payment term day counts within the configured
// day tolerance.
func (c *Comparator) ComparePaymentTerms(invoiceDays, poDays *int) ComparisonOutcome {
	if invoiceDays == nil || poDays == nil {
		return ComparisonOutcome{
			Result:      EscalationRequired,
			Reason:      "Payment terms comparison not available - missing term data",
			InvoiceDays: invoiceDays,
			PODays:      poDays,
		}
	}

	varianceDays := *invoiceDays - *poDays
	outcome := ComparisonOutcome{
		InvoiceDays:  invoiceDays,
		PODays:       poDays,
		VarianceDays: &varianceDays,
	}

	absVariance := varianceDays
	if absVariance < 0 {
		absVariance = -absVariance
	}

	switch {
	case varianceDays == 0:
		outcome.Result = PerfectMatch
		outcome.Reason = "Payment terms match exactly"
	case absVariance <= c.tolerances.PaymentTermsToleranceDays:
		outcome.Result = WithinTolerance
		outcome.Reason = fmt.Sprintf("Payment terms differ by %d day(s), within the %d day tolerance",
			absVariance, c.tolerances.PaymentTermsToleranceDays)
	default:
		outcome.Result = EscalationRequired
		outcome.Reason = fmt.Sprintf("Payment terms differ by %d day(s), exceeding the %d day tolerance",
			absVariance, c.tolerances.PaymentTermsToleranceDays)
	}
	return outcome
}

// CompareVendors compares vendor names after trimming, case-insensitively.
// Vendor identity is binary: no partial credit for similar names.
func (c *Comparator) CompareVendors(invoiceVendor, poVendor *string) ComparisonOutcome {
	if invoiceVendor == nil || poVendor == nil {
		return ComparisonOutcome{
			Result: EscalationRequired,
			Reason: "Missing vendor data - cannot compare",
		}
	}

	trimmedInvoice := strings.TrimSpace(*invoiceVendor)
	trimmedPO := strings.TrimSpace(*poVendor)
	outcome := ComparisonOutcome{
		InvoiceVendor: &trimmedInvoice,
		POVendor:      &trimmedPO,
	}

	if strings.EqualFold(trimmedInvoice, trimmedPO) {
		outcome.Result = PerfectMatch
		outcome.Reason = "Vendor names match"
	} else {
		outcome.Result = EscalationRequired
		outcome.Reason = "Vendor mismatch detected - requires authorization"
	}
	return outcome
}

// roundedPtr rounds to two decimal places and returns a pointer, for report
// fields.
func roundedPtr(d decimal.Decimal) *decimal.Decimal {
	rounded := d.Round(2)
	return &rounded
}
