// Package ai extracts structured invoice data from document images using
// vision-capable language models. The provider returns free text; parsing here
// is deliberately forgiving because models format numbers inconsistently.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/apflow/invoice-match-service/internal/models"
)

// extractionPrompt instructs the model to emit strict JSON. A document may
// carry several invoices, so the top-level shape is always a list.
const extractionPrompt = `You are an accounts payable assistant. Extract the invoice data from the attached document images.

Respond with ONLY a JSON object, no prose and no markdown, in exactly this shape:

{
  "document_type": "invoice",
  "invoices": [
    {
      "number": "invoice number as printed",
      "po_number": "referenced purchase order number, empty string if absent",
      "amount": 0.00,
      "tax_amount": 0.00,
      "currency_code": "ISO 4217 code such as USD, null if not shown",
      "date": "YYYY-MM-DD",
      "due_date": "YYYY-MM-DD",
      "payment_term_days": 30,
      "vendor": "vendor legal name, null if not shown",
      "line_items": [
        {"description": "", "quantity": 0, "unit_price": 0.00, "total": 0.00}
      ]
    }
  ]
}

Rules:
- amount is the invoice total including tax.
- Use null for any field you cannot read, never guess.
- If the document contains multiple invoices, return one entry per invoice.
- payment_term_days is the number of days, derived from terms like "Net 30".`

// Extractor turns document images into extracted invoices via a Provider.
type Extractor struct {
	provider Provider
}

// NewExtractor creates an extractor backed by the given provider.
func NewExtractor(provider Provider) *Extractor {
	return &Extractor{provider: provider}
}

// Provider returns the backing provider, for job bookkeeping.
func (e *Extractor) Provider() Provider {
	return e.provider
}

// Extract sends the page images to the provider and parses the response.
func (e *Extractor) Extract(ctx context.Context, images []string) ([]models.ExtractedInvoice, error) {
	response, err := e.provider.ExtractData(ctx, extractionPrompt, images)
	if err != nil {
		return nil, fmt.Errorf("AI extraction failed: %w", err)
	}
	invoices, err := ParseResponse(response)
	if err != nil {
		return nil, fmt.Errorf("parsing AI response: %w", err)
	}
	return invoices, nil
}

// rawInvoice mirrors the prompt's JSON shape. Numeric fields are interface{}
// because models sometimes return numbers as quoted strings.
type rawInvoice struct {
	Number          string      `json:"number"`
	PONumber        string      `json:"po_number"`
	Amount          interface{} `json:"amount"`
	TaxAmount       interface{} `json:"tax_amount"`
	CurrencyCode    *string     `json:"currency_code"`
	Date            string      `json:"date"`
	DueDate         string      `json:"due_date"`
	PaymentTermDays interface{} `json:"payment_term_days"`
	Vendor          *string     `json:"vendor"`
	LineItems       []struct {
		Description string      `json:"description"`
		Quantity    interface{} `json:"quantity"`
		UnitPrice   interface{} `json:"unit_price"`
		Total       interface{} `json:"total"`
	} `json:"line_items"`
}

// ParseResponse parses a model response into extracted invoices. Markdown
// code fences around the JSON are stripped. Unparseable optional fields become
// nil rather than failing the whole extraction; downstream reconciliation
// treats nil as missing data and escalates.
func ParseResponse(response string) ([]models.ExtractedInvoice, error) {
	cleaned := stripCodeFences(response)

	var payload struct {
		DocumentType string       `json:"document_type"`
		Invoices     []rawInvoice `json:"invoices"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}
	if len(payload.Invoices) == 0 {
		return nil, fmt.Errorf("model response contains no invoices")
	}

	invoices := make([]models.ExtractedInvoice, 0, len(payload.Invoices))
	for _, raw := range payload.Invoices {
		invoice := models.ExtractedInvoice{
			InvoiceNumber:   strings.TrimSpace(raw.Number),
			PONumber:        strings.TrimSpace(raw.PONumber),
			Amount:          parseDecimal(raw.Amount),
			TaxAmount:       parseDecimal(raw.TaxAmount),
			CurrencyCode:    cleanString(raw.CurrencyCode),
			Date:            strings.TrimSpace(raw.Date),
			DueDate:         strings.TrimSpace(raw.DueDate),
			PaymentTermDays: parseInt(raw.PaymentTermDays),
			Vendor:          cleanString(raw.Vendor),
		}
		for _, item := range raw.LineItems {
			invoice.LineItems = append(invoice.LineItems, models.LineItem{
				Description: strings.TrimSpace(item.Description),
				Quantity:    parseDecimal(item.Quantity),
				UnitPrice:   parseDecimal(item.UnitPrice),
				Total:       parseDecimal(item.Total),
			})
		}
		invoices = append(invoices, invoice)
	}
	return invoices, nil
}

// stripCodeFences removes a surrounding ```json ... ``` block if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseDecimal handles flexible number parsing: JSON numbers, quoted numbers,
// and strings with thousands separators all appear in model output. Returns
// nil when the value is missing or unparseable.
func parseDecimal(v interface{}) *decimal.Decimal {
	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		d := decimal.NewFromFloat(value)
		return &d
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
		cleaned = strings.TrimPrefix(cleaned, "$")
		if cleaned == "" {
			return nil
		}
		d, err := decimal.NewFromString(cleaned)
		if err != nil {
			return nil
		}
		return &d
	case json.Number:
		d, err := decimal.NewFromString(value.String())
		if err != nil {
			return nil
		}
		return &d
	default:
		return nil
	}
}

// parseInt handles the same flexibility for whole-number fields.
func parseInt(v interface{}) *int {
	switch value := v.(type) {
	case nil:
		return nil
	case float64:
		n := int(value)
		return &n
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil
		}
		return &n
	case json.Number:
		n, err := strconv.Atoi(value.String())
		if err != nil {
			return nil
		}
		return &n
	default:
		return nil
	}
}

// cleanString trims the value and collapses empty strings to nil.
func cleanString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
