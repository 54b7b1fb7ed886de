package ai

import "context"

// mockResponse is a realistic single-invoice extraction used when no AI
// provider is configured, so the full pipeline stays exercisable in demos and
// local development.
const mockResponse = `{
  "document_type": "invoice",
  "invoices": [
    {
      "number": "INV-DEMO-123",
      "po_number": "PO-456",
      "amount": 1250.00,
      "tax_amount": 250.00,
      "currency_code": "USD",
      "date": "2025-01-15",
      "due_date": "2025-02-14",
      "payment_term_days": 30,
      "vendor": "Demo Vendor Inc",
      "line_items": [
        {
          "description": "Consulting services",
          "quantity": 10,
          "unit_price": 125.00,
          "total": 1250.00
        }
      ]
    }
  ]
}`

// MockProvider returns a canned extraction without calling any AI service.
type MockProvider struct{}

// NewMockProvider creates the mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// ExtractData ignores the inputs and returns the canned response.
func (p *MockProvider) ExtractData(_ context.Context, _ string, _ []string) (string, error) {
	return mockResponse, nil
}

// Name identifies the provider.
func (p *MockProvider) Name() string {
	return "mock"
}
