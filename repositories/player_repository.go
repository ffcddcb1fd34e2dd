package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/chalkline/league-system/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrPlayerEmailConflict = errors.New("player email conflict")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByEmail(ctx context.Context, email string) (*models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `
		INSERT INTO players (first_name, last_name, nickname, role, email, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		player.FirstName,
		player.LastName,
		player.Nickname,
		player.Role,
		player.Email,
		player.PasswordHash,
	).Scan(&player.ID, &player.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Constraint == "players_email_key" {
			return ErrPlayerEmailConflict
		}
	}
	return err
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, nickname, role, email, password_hash, created_at
		FROM players
		WHERE id = $1`
	return r.scanPlayer(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresPlayerRepository) GetByEmail(ctx context.Context, email string) (*models.Player, error) {
	query := `
		SELECT id, first_name, last_name, nickname, role, email, password_hash, created_at
		FROM players
		WHERE email = $1`
	return r.scanPlayer(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresPlayerRepository) scanPlayer(row *sql.Row) (*models.Player, error) {
	player := &models.Player{}
	err := row.Scan(
		&player.ID,
		&player.FirstName,
		&player.LastName,
		&player.Nickname,
		&player.Role,
		&player.Email,
		&player.PasswordHash,
		&player.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return player, nil
}
