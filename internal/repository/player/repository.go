package player

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"futsal-club/internal/models"
	"futsal-club/internal/repository"

	"github.com/jmoiron/sqlx"
)

type playerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) repository.PlayerRepository {
	return &playerRepository{db: db}
}

const columns = `p.id, p.user_id, p.player_code, p.first_name, p.last_name, p.status,
	p.is_archived, p.insurance_status, p.insurance_expiry, p.created_at`

func (r *playerRepository) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	query := `SELECT ` + columns + ` FROM players p WHERE p.id = $1`

	var p models.Player
	if err := repository.Executor(ctx, r.db).GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get player %d: %w", id, err)
	}
	return &p, nil
}

func (r *playerRepository) Create(ctx context.Context, p *models.Player) error {
	query := `
		INSERT INTO players (user_id, player_code, first_name, last_name, status,
			is_archived, insurance_status, insurance_expiry)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	var expiry *string
	if p.InsuranceExpiry != nil {
		s := p.InsuranceExpiry.Format(time.DateOnly)
		expiry = &s
	}
	err := repository.Executor(ctx, r.db).QueryRowxContext(ctx, query,
		p.UserID, p.PlayerCode, p.FirstName, p.LastName, p.Status,
		p.IsArchived, p.InsuranceStatus, expiry,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create player %s: %w", p.PlayerCode, err)
	}
	return nil
}

func (r *playerRepository) AddToCategory(ctx context.Context, categoryID, playerID int64) error {
	query := `
		INSERT INTO category_players (category_id, player_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := repository.Executor(ctx, r.db).ExecContext(ctx, query, categoryID, playerID); err != nil {
		return fmt.Errorf("add player %d to category %d: %w", playerID, categoryID, err)
	}
	return nil
}

func (r *playerRepository) ListBillableByCategory(ctx context.Context, categoryID int64) ([]models.Player, error) {
	query := `
		SELECT ` + columns + `
		FROM players p
		JOIN category_players cp ON cp.player_id = p.id
		WHERE cp.category_id = $1 AND p.status = 'approved' AND p.is_archived = FALSE
		ORDER BY p.last_name, p.first_name, p.id
	`
	var players []models.Player
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &players, query, categoryID); err != nil {
		return nil, fmt.Errorf("list players of category %d: %w", categoryID, err)
	}
	return players, nil
}

func (r *playerRepository) ListWithActiveInsurance(ctx context.Context) ([]models.Player, error) {
	query := `
		SELECT ` + columns + `
		FROM players p
		WHERE p.status = 'approved' AND p.is_archived = FALSE
			AND p.insurance_status = 'active' AND p.insurance_expiry IS NOT NULL
		ORDER BY p.insurance_expiry, p.id
	`
	var players []models.Player
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &players, query); err != nil {
		return nil, fmt.Errorf("list insured players: %w", err)
	}
	return players, nil
}

func (r *playerRepository) ListCategoryIDs(ctx context.Context, playerID int64) ([]int64, error) {
	query := `SELECT category_id FROM category_players WHERE player_id = $1 ORDER BY category_id`

	var ids []int64
	if err := repository.Executor(ctx, r.db).SelectContext(ctx, &ids, query, playerID); err != nil {
		return nil, fmt.Errorf("list categories of player %d: %w", playerID, err)
	}
	return ids, nil
}
