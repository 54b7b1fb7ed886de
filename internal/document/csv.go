package document

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/apflow/invoice-match-service/internal/models"
)

// ParseInvoices reads invoice rows exported from upstream AP systems. The
// first row must be a header; column order is free. Recognized columns:
// invoice_number, po_number, amount, tax_amount, currency_code, date,
// due_date, payment_term_days, vendor. Unparseable optional values become
// nil, the same convention the AI extraction path uses, so downstream
// reconciliation escalates missing data uniformly.
func ParseInvoices(r io.Reader) ([]models.ExtractedInvoice, error) {
	rows, header, err := readRows(r)
	if err != nil {
		return nil, err
	}

	invoices := make([]models.ExtractedInvoice, 0, len(rows))
	for i, row := range rows {
		invoice := models.ExtractedInvoice{
			InvoiceNumber:   field(row, header, "invoice_number"),
			PONumber:        field(row, header, "po_number"),
			Amount:          csvDecimal(field(row, header, "amount")),
			TaxAmount:       csvDecimal(field(row, header, "tax_amount")),
			CurrencyCode:    csvString(field(row, header, "currency_code")),
			Date:            field(row, header, "date"),
			DueDate:         field(row, header, "due_date"),
			PaymentTermDays: csvInt(field(row, header, "payment_term_days")),
			Vendor:          csvString(field(row, header, "vendor")),
		}
		if invoice.InvoiceNumber == "" {
			return nil, fmt.Errorf("row %d: missing invoice_number", i+2)
		}
		invoices = append(invoices, invoice)
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("csv contains no invoice rows")
	}
	return invoices, nil
}

// ParsePurchaseOrders reads purchase order rows for bulk import. Recognized
// columns: po_number, vendor_name, company_name, total_amount, currency,
// status, payment_terms, date, required_delivery_date. Dates use YYYY-MM-DD.
func ParsePurchaseOrders(r io.Reader) ([]models.PurchaseOrder, error) {
	rows, header, err := readRows(r)
	if err != nil {
		return nil, err
	}

	orders := make([]models.PurchaseOrder, 0, len(rows))
	for i, row := range rows {
		amountText := field(row, header, "total_amount")
		amount, err := decimal.NewFromString(strings.ReplaceAll(amountText, ",", ""))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid total_amount %q", i+2, amountText)
		}

		po := models.PurchaseOrder{
			PONumber:             field(row, header, "po_number"),
			VendorName:           field(row, header, "vendor_name"),
			CompanyName:          field(row, header, "company_name"),
			TotalAmount:          amount,
			Currency:             strings.ToUpper(field(row, header, "currency")),
			Status:               field(row, header, "status"),
			PaymentTerms:         field(row, header, "payment_terms"),
			Date:                 csvDate(field(row, header, "date")),
			RequiredDeliveryDate: csvDate(field(row, header, "required_delivery_date")),
		}
		if po.PONumber == "" {
			return nil, fmt.Errorf("row %d: missing po_number", i+2)
		}
		orders = append(orders, po)
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("csv contains no purchase order rows")
	}
	return orders, nil
}

// readRows reads the whole CSV and returns data rows plus a column index
// built from the header row.
func readRows(r io.Reader) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) < 1 {
		return nil, nil, fmt.Errorf("csv is empty")
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return records[1:], header, nil
}

func field(row []string, header map[string]int, name string) string {
	idx, ok := header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func csvString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func csvDecimal(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil
	}
	return &d
}

func csvInt(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func csvDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}
