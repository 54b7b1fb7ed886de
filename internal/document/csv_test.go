package document

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInvoices(t *testing.T) {
	csv := strings.Join([]string{
		"invoice_number,po_number,amount,tax_amount,currency_code,date,due_date,payment_term_days,vendor",
		`INV-001,PO-1001,"3,055.00",550.00,USD,2026-01-10,2026-02-09,30,Acme Corp`,
		"INV-002,PO-5005,980.00,,,2026-01-11,,,",
	}, "\n")

	invoices, err := ParseInvoices(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, invoices, 2)

	first := invoices[0]
	assert.Equal(t, "INV-001", first.InvoiceNumber)
	assert.Equal(t, "PO-1001", first.PONumber)
	require.NotNil(t, first.Amount)
	assert.True(t, first.Amount.Equal(decimal.RequireFromString("3055.00")))
	require.NotNil(t, first.PaymentTermDays)
	assert.Equal(t, 30, *first.PaymentTermDays)
	require.NotNil(t, first.Vendor)
	assert.Equal(t, "Acme Corp", *first.Vendor)

	second := invoices[1]
	assert.Nil(t, second.TaxAmount)
	assert.Nil(t, second.CurrencyCode)
	assert.Nil(t, second.PaymentTermDays)
	assert.Nil(t, second.Vendor)
}

func TestParseInvoicesColumnOrderIsFree(t *testing.T) {
	csv := strings.Join([]string{
		"vendor,amount,invoice_number,po_number",
		"Acme Corp,100.00,INV-001,PO-1001",
	}, "\n")

	invoices, err := ParseInvoices(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "INV-001", invoices[0].InvoiceNumber)
	require.NotNil(t, invoices[0].Amount)
}

func TestParseInvoicesUnparseableOptionalBecomesNil(t *testing.T) {
	csv := strings.Join([]string{
		"invoice_number,po_number,amount,payment_term_days",
		"INV-001,PO-1001,not-a-number,soon",
	}, "\n")

	invoices, err := ParseInvoices(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Nil(t, invoices[0].Amount)
	assert.Nil(t, invoices[0].PaymentTermDays)
}

func TestParseInvoicesErrors(t *testing.T) {
	_, err := ParseInvoices(strings.NewReader(""))
	assert.Error(t, err)

	// Header only, no rows.
	_, err = ParseInvoices(strings.NewReader("invoice_number,po_number\n"))
	assert.Error(t, err)

	// Row without the mandatory invoice number.
	_, err = ParseInvoices(strings.NewReader("invoice_number,po_number\n,PO-1001\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invoice_number")
}

func TestParsePurchaseOrders(t *testing.T) {
	csv := strings.Join([]string{
		"po_number,vendor_name,company_name,total_amount,currency,status,payment_terms,date,required_delivery_date",
		"PO-1001,Acme Corp,Initech,3055.00,usd,open,Net 30,2026-01-02,2026-02-15",
		"PO-5005,Globex LLC,,980.00,EUR,,Net 45,,",
	}, "\n")

	orders, err := ParsePurchaseOrders(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	first := orders[0]
	assert.Equal(t, "PO-1001", first.PONumber)
	assert.Equal(t, "USD", first.Currency, "currency is normalized to uppercase")
	assert.True(t, first.TotalAmount.Equal(decimal.RequireFromString("3055.00")))
	require.NotNil(t, first.Date)
	assert.Equal(t, "2026-01-02", first.Date.Format("2006-01-02"))

	second := orders[1]
	assert.Nil(t, second.Date)
	assert.Nil(t, second.RequiredDeliveryDate)
}

func TestParsePurchaseOrdersInvalidAmount(t *testing.T) {
	csv := strings.Join([]string{
		"po_number,vendor_name,total_amount,currency",
		"PO-1001,Acme Corp,abc,USD",
	}, "\n")

	_, err := ParsePurchaseOrders(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total_amount")
}

func TestSupportedExtension(t *testing.T) {
	for _, ext := range []string{".pdf", ".jpg", ".jpeg", ".png", ".csv", ".PDF"} {
		assert.True(t, SupportedExtension(ext), ext)
	}
	for _, ext := range []string{".docx", ".txt", ".exe", ""} {
		assert.False(t, SupportedExtension(ext), ext)
	}
}
