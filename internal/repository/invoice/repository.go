package invoice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type invoiceRepository struct {
	db *sqlx.DB
}

func NewInvoiceRepository(db *sqlx.DB) repository.InvoiceRepository {
	return &invoiceRepository{db: db}
}

const columns = `id, player_id, category_id, jalali_year, jalali_month, amount, discount,
	final_amount, status, receipt_ref, paid_at, confirmed_by, created_at, updated_at`

func (r *invoiceRepository) GetByID(ctx context.Context, id int64) (*models.PlayerInvoice, error) {
	query := `SELECT ` + columns + ` FROM player_invoices WHERE id = $1`

	var inv models.PlayerInvoice
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &inv, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return &inv, nil
}

func (r *invoiceRepository) CreateIfAbsent(ctx context.Context, inv *models.PlayerInvoice) (bool, error) {
	if err := inv.Normalize(); err != nil {
		return false, err
	}
	query := `
		INSERT INTO player_invoices (player_id, category_id, jalali_year, jalali_month,
			amount, discount, final_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (player_id, category_id, jalali_year, jalali_month) DO NOTHING
		RETURNING id, created_at, updated_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		inv.PlayerID, inv.CategoryID, inv.JalaliYear, inv.JalaliMonth,
		inv.Amount, inv.Discount, inv.FinalAmount, inv.Status,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create invoice player %d %d/%d: %w", inv.PlayerID, inv.JalaliYear, inv.JalaliMonth, err)
	}
	return true, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *models.PlayerInvoice) error {
	if err := inv.Normalize(); err != nil {
		return err
	}
	query := `
		UPDATE player_invoices
		SET discount = $2, final_amount = $3, status = $4, receipt_ref = $5,
			paid_at = $6, confirmed_by = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		inv.ID, inv.Discount, inv.FinalAmount, inv.Status, inv.ReceiptRef, inv.PaidAt, inv.ConfirmedBy,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update invoice %d: %w", inv.ID, err)
	}
	return nil
}

func (r *invoiceRepository) ListByMonth(ctx context.Context, year, month int, statuses ...models.InvoiceStatus) ([]models.PlayerInvoice, error) {
	query := `
		SELECT ` + columns + `
		FROM player_invoices
		WHERE jalali_year = $1 AND jalali_month = $2
			AND (cardinality($3::text[]) = 0 OR status = ANY($3))
		ORDER BY id
	`
	filter := make([]string, len(statuses))
	for i, s := range statuses {
		filter[i] = string(s)
	}

	var invoices []models.PlayerInvoice
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &invoices, query, year, month, pq.Array(filter)); err != nil {
		return nil, fmt.Errorf("list invoices %d/%d: %w", year, month, err)
	}
	return invoices, nil
}

func (r *invoiceRepository) CountByCategoryMonth(ctx context.Context, categoryID int64, year, month int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM player_invoices
		WHERE category_id = $1 AND jalali_year = $2 AND jalali_month = $3
	`
	var n int
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &n, query, categoryID, year, month); err != nil {
		return 0, fmt.Errorf("count invoices category %d %d/%d: %w", categoryID, year, month, err)
	}
	return n, nil
}
