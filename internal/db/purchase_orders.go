package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/apflow/invoice-match-service/internal/models"
)

// PurchaseOrderRepo reads and writes the purchase_orders table.
type PurchaseOrderRepo struct {
	pool *pgxpool.Pool
}

// NewPurchaseOrderRepo creates a repository over the given pool.
func NewPurchaseOrderRepo(pool *pgxpool.Pool) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{pool: pool}
}

// References returns every known PO number, the matching pool input.
func (r *PurchaseOrderRepo) References(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT po_number FROM purchase_orders ORDER BY po_number`)
	if err != nil {
		return nil, fmt.Errorf("querying po references: %w", err)
	}
	defer rows.Close()

	var references []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scanning po reference: %w", err)
		}
		references = append(references, ref)
	}
	return references, rows.Err()
}

const poColumns = `po_number, vendor_name, COALESCE(company_name, ''), total_amount,
		currency, COALESCE(status, ''), COALESCE(payment_terms, ''), date, required_delivery_date`

// GetByNumber loads one purchase order by its exact PO number.
func (r *PurchaseOrderRepo) GetByNumber(ctx context.Context, poNumber string) (*models.PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+poColumns+` FROM purchase_orders WHERE po_number = $1`, poNumber)

	var po models.PurchaseOrder
	err := row.Scan(&po.PONumber, &po.VendorName, &po.CompanyName, &po.TotalAmount,
		&po.Currency, &po.Status, &po.PaymentTerms, &po.Date, &po.RequiredDeliveryDate)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("purchase order %s not found", poNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("loading purchase order %s: %w", poNumber, err)
	}
	return &po, nil
}

// List returns purchase orders ordered by PO number, capped at limit.
func (r *PurchaseOrderRepo) List(ctx context.Context, limit int) ([]models.PurchaseOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+poColumns+` FROM purchase_orders ORDER BY po_number LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []models.PurchaseOrder
	for rows.Next() {
		var po models.PurchaseOrder
		if err := rows.Scan(&po.PONumber, &po.VendorName, &po.CompanyName, &po.TotalAmount,
			&po.Currency, &po.Status, &po.PaymentTerms, &po.Date, &po.RequiredDeliveryDate); err != nil {
			return nil, fmt.Errorf("scanning purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	return orders, rows.Err()
}

// BulkUpsert inserts purchase orders, updating existing rows on po_number
// conflicts. Returns the number of rows written.
func (r *PurchaseOrderRepo) BulkUpsert(ctx context.Context, orders []models.PurchaseOrder) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	written := 0
	for _, po := range orders {
		_, err := tx.Exec(ctx, `
			INSERT INTO purchase_orders
				(po_number, vendor_name, company_name, total_amount, currency, status, payment_terms, date, required_delivery_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (po_number) DO UPDATE SET
				vendor_name = EXCLUDED.vendor_name,
				company_name = EXCLUDED.company_name,
				total_amount = EXCLUDED.total_amount,
				currency = EXCLUDED.currency,
				status = EXCLUDED.status,
				payment_terms = EXCLUDED.payment_terms,
				date = EXCLUDED.date,
				required_delivery_date = EXCLUDED.required_delivery_date`,
			po.PONumber, po.VendorName, po.CompanyName, po.TotalAmount,
			po.Currency, po.Status, po.PaymentTerms, po.Date, po.RequiredDeliveryDate)
		if err != nil {
			return 0, fmt.Errorf("upserting purchase order %s: %w", po.PONumber, err)
		}
		written++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing purchase order import: %w", err)
	}
	return written, nil
}
