package matching

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/apflow/invoice-match-service/internal/models"
)

// Report field keys.
const (
	FieldAmount       = "amount"
	FieldCurrency     = "currency"
	FieldPaymentTerms = "payment_terms"
	FieldVendor       = "vendor"
	FieldError        = "error"
)

// Report is the full reconciliation outcome for one invoice/PO pair. Overall
// is the maximum severity across all field comparisons: a single escalation
// taints the whole invoice.
type Report struct {
	Overall     MatchResult                  `json:"overall_status"`
	Comparisons map[string]ComparisonOutcome `json:"comparisons"`
}

// Engine reconciles extracted invoices against matched purchase orders.
type Engine struct {
	comparator *Comparator
}

// NewEngine creates a reconciliation engine with the given tolerances.
func NewEngine(tolerances Tolerances) *Engine {
	return &Engine{comparator: NewComparator(tolerances)}
}

var digitRun = regexp.MustCompile(`\d+`)

// TermDays derives a day count from free-text payment terms, taking the first
// run of digits ("Net 30" yields 30). Returns nil when the text carries no
// digits, which downstream treats as missing data.
func TermDays(terms string) *int {
	digits := digitRun.FindString(terms)
	if digits == "" {
		return nil
	}
	days, err := strconv.Atoi(digits)
	if err != nil {
		return nil
	}
	return &days
}

// Reconcile compares every monitored field of the invoice against the PO and
// reduces the outcomes into an overall status. It never panics: any internal
// failure (including nil inputs) is converted into an escalation report with a
// synthetic error entry, so the invoice is routed to a human instead of
// crashing the batch.
func (e *Engine) Reconcile(invoice *models.ExtractedInvoice, po *models.PurchaseOrder) (report *Report) {
	defer func() {
		if r := recover(); r != nil {
			report = &Report{
				Overall: EscalationRequired,
				Comparisons: map[string]ComparisonOutcome{
					FieldError: {
						Result: EscalationRequired,
						Reason: fmt.Sprintf("Comparison failed: %v", r),
					},
				},
			}
		}
	}()

	poAmount := po.TotalAmount
	poCurrency := po.Currency
	poVendor := po.VendorName

	comparisons := map[string]ComparisonOutcome{
		FieldAmount:       e.comparator.CompareAmounts(invoice.Amount, &poAmount),
		FieldCurrency:     e.comparator.CompareCurrencies(invoice.CurrencyCode, &poCurrency),
		FieldPaymentTerms: e.comparator.ComparePaymentTerms(invoice.PaymentTermDays, TermDays(po.PaymentTerms)),
		FieldVendor:       e.comparator.CompareVendors(invoice.Vendor, &poVendor),
	}

	overall := PerfectMatch
	for _, outcome := range comparisons {
		overall = maxSeverity(overall, outcome.Result)
	}

	return &Report{Overall: overall, Comparisons: comparisons}
}
