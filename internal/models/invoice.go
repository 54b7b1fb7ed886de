package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExtractedInvoice holds the structured data pulled out of a single invoice
// document. Every field the extractor may fail to find is a pointer; nil means
// the value was absent or could not be coerced to the expected type.
type ExtractedInvoice struct {
	InvoiceNumber   string           `json:"invoice_number"`
	PONumber        string           `json:"po_number"`
	Amount          *decimal.Decimal `json:"amount"`
	TaxAmount       *decimal.Decimal `json:"tax_amount"`
	CurrencyCode    *string          `json:"currency_code"`
	Date            string           `json:"date"`
	DueDate         string           `json:"due_date"`
	PaymentTermDays *int             `json:"payment_term_days"`
	Vendor          *string          `json:"vendor"`
	LineItems       []LineItem       `json:"line_items"`
}

// LineItem is a single line on an extracted invoice.
type LineItem struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	Total       *decimal.Decimal `json:"total"`
}

// PurchaseOrder is the system-of-record comparison target. Unlike extracted
// data its fields are assumed present and well formed.
type PurchaseOrder struct {
	PONumber             string          `json:"po_number"`
	VendorName           string          `json:"vendor_name"`
	CompanyName          string          `json:"company_name"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	Currency             string          `json:"currency"`
	Status               string          `json:"status"`
	PaymentTerms         string          `json:"payment_terms"` // free text, e.g. "Net 30"
	Date                 *time.Time      `json:"date"`
	RequiredDeliveryDate *time.Time      `json:"required_delivery_date"`
}

// ExtractionJob tracks one uploaded document through the pipeline.
type ExtractionJob struct {
	ID                uuid.UUID  `json:"id"`
	OriginalFilename  string     `json:"original_filename"`
	FileType          string     `json:"file_type"`
	Status            string     `json:"status"` // PROCESSING, COMPLETED, FAILED
	AIServiceUsed     string     `json:"ai_service_used"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	DocumentURL       string     `json:"document_url,omitempty"`
	ProcessingSeconds float64    `json:"processing_time_seconds"`
	CreatedAt         time.Time  `json:"created_at"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
}

// Config represents the service configuration
type Config struct {
	// Server config
	Port string `yaml:"port"`
	Host string `yaml:"host"`

	// AI config
	AI AIConfig `yaml:"ai"`

	// Matching tolerances
	Matching MatchingConfig `yaml:"matching"`

	// Logging
	Log LogConfig `yaml:"log"`
}

// AIConfig represents AI provider configuration
type AIConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Gemini GeminiConfig `yaml:"gemini"`

	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "openai", "gemini", "mock"
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`              // Default: "gpt-4o"
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"` // Default: "gemini-1.5-flash"
}

// MatchingConfig carries the tolerance policy for PO matching and
// reconciliation. Zero values are replaced with the business defaults at load
// time (fuzzy threshold 2, 5% amount tolerance, 1 day payment terms).
type MatchingConfig struct {
	FuzzyThreshold            int     `yaml:"fuzzy_threshold"`
	AmountTolerancePercent    float64 `yaml:"amount_tolerance_percent"`
	PaymentTermsToleranceDays int     `yaml:"payment_terms_tolerance_days"`
}

// LogConfig controls logrus output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
