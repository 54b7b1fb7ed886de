// Package pipeline orchestrates the extract-and-match flow: resolve each
// extracted invoice against the PO pool, then reconcile matched pairs into an
// auto-approve / escalate decision.
package pipeline

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/apflow/invoice-match-service/internal/matching"
	"github.com/apflow/invoice-match-service/internal/models"
)

// Match type labels on the wire.
const (
	MatchTypeExact = "exact"
	MatchTypeFuzzy = "fuzzy"
	MatchTypeNone  = "none"
)

// PORepository supplies the purchase order pool. Implemented by the database
// layer; tests use in-memory fakes.
type PORepository interface {
	// References returns every known PO number.
	References(ctx context.Context) ([]string, error)

	// GetByNumber loads the full purchase order record for a PO number.
	GetByNumber(ctx context.Context, poNumber string) (*models.PurchaseOrder, error)
}

// MatchingInfo annotates one extracted invoice with its PO match outcome.
// MatchedPO and DataComparison are nil when no PO matched.
type MatchingInfo struct {
	MatchedPO       *models.PurchaseOrder `json:"matched_po"`
	MatchConfidence int                   `json:"match_confidence"`
	MatchType       string                `json:"match_type"`
	DataComparison  *matching.Report      `json:"data_comparison"`
}

// Result is the terminal record for one invoice in a batch. Error is set when
// this invoice failed mid-pipeline; the rest of the batch is unaffected.
type Result struct {
	models.ExtractedInvoice
	Matching MatchingInfo `json:"matching"`
	Error    string       `json:"error,omitempty"`
}

// Orchestrator runs extracted invoices through matching and reconciliation.
type Orchestrator struct {
	repo      PORepository
	engine    *matching.Engine
	threshold int
	log       *logrus.Entry
}

// New builds an orchestrator from the matching configuration, filling in
// defaults for unset values.
func New(repo PORepository, cfg models.MatchingConfig, log *logrus.Logger) *Orchestrator {
	tolerances := matching.DefaultTolerances()
	if cfg.AmountTolerancePercent > 0 {
		tolerances.AmountTolerancePercent = decimal.NewFromFloat(cfg.AmountTolerancePercent)
	}
	if cfg.PaymentTermsToleranceDays > 0 {
		tolerances.PaymentTermsToleranceDays = cfg.PaymentTermsToleranceDays
	}
	threshold := cfg.FuzzyThreshold
	if threshold <= 0 {
		threshold = matching.DefaultFuzzyThreshold
	}
	return &Orchestrator{
		repo:      repo,
		engine:    matching.NewEngine(tolerances),
		threshold: threshold,
		log:       log.WithField("component", "pipeline"),
	}
}

// ProcessBatch matches and reconciles a batch of extracted invoices. The PO
// reference pool is fetched once and treated as an immutable snapshot for the
// whole batch, so every invoice in the batch sees the same pool. Each invoice
// is processed independently; one failure never blocks the rest. The returned
// slice is index-aligned with the input.
func (o *Orchestrator) ProcessBatch(ctx context.Context, invoices []models.ExtractedInvoice) ([]Result, error) {
	references, err := o.repo.References(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading purchase order references: %w", err)
	}
	pool := matching.NewPool(references)

	o.log.WithFields(logrus.Fields{
		"invoices":   len(invoices),
		"references": pool.Size(),
	}).Info("processing batch")

	results := make([]Result, 0, len(invoices))
	for i := range invoices {
		results = append(results, o.processOne(ctx, invoices[i], pool))
	}
	return results, nil
}

func (o *Orchestrator) processOne(ctx context.Context, invoice models.ExtractedInvoice, pool *matching.Pool) Result {
	result := Result{
		ExtractedInvoice: invoice,
		Matching:         MatchingInfo{MatchType: MatchTypeNone},
	}

	match, ok := pool.FindBestMatch(invoice.PONumber, o.threshold)
	if !ok {
		o.log.WithFields(logrus.Fields{
			"invoice":   invoice.InvoiceNumber,
			"po_number": invoice.PONumber,
		}).Info("no purchase order match")
		return result
	}

	result.Matching.MatchType = matchTypeLabel(match.Type)
	result.Matching.MatchConfidence = matching.Confidence(invoice.PONumber, match.Reference, match.Type)

	po, err := o.repo.GetByNumber(ctx, match.Reference)
	if err != nil {
		result.Error = fmt.Sprintf("loading purchase order %s: %v", match.Reference, err)
		o.log.WithField("po_number", match.Reference).WithError(err).Error("purchase order lookup failed")
		return result
	}

	result.Matching.MatchedPO = po
	result.Matching.DataComparison = o.engine.Reconcile(&result.ExtractedInvoice, po)

	o.log.WithFields(logrus.Fields{
		"invoice":    invoice.InvoiceNumber,
		"matched_po": po.PONumber,
		"match_type": result.Matching.MatchType,
		"confidence": result.Matching.MatchConfidence,
		"overall":    result.Matching.DataComparison.Overall.String(),
	}).Info("invoice reconciled")
	return result
}

func matchTypeLabel(t matching.MatchType) string {
	switch t {
	case matching.MatchExact:
		return MatchTypeExact
	case matching.MatchClose:
		return MatchTypeFuzzy
	default:
		return MatchTypeNone
	}
}

// StaticRepository is an in-memory PORepository backed by a fixed slice of
// purchase orders. It backs the service when no database is configured and
// doubles as a test fake.
type StaticRepository struct {
	orders []models.PurchaseOrder
}

// NewStaticRepository copies the given purchase orders into an in-memory
// repository.
func NewStaticRepository(orders []models.PurchaseOrder) *StaticRepository {
	copied := make([]models.PurchaseOrder, len(orders))
	copy(copied, orders)
	return &StaticRepository{orders: copied}
}

// References returns every PO number held in memory.
func (r *StaticRepository) References(_ context.Context) ([]string, error) {
	refs := make([]string, 0, len(r.orders))
	for _, po := range r.orders {
		refs = append(refs, po.PONumber)
	}
	return refs, nil
}

// GetByNumber finds a purchase order by exact PO number.
func (r *StaticRepository) GetByNumber(_ context.Context, poNumber string) (*models.PurchaseOrder, error) {
	for i := range r.orders {
		if r.orders[i].PONumber == poNumber {
			po := r.orders[i]
			return &po, nil
		}
	}
	return nil, fmt.Errorf("purchase order %s not found", poNumber)
}
