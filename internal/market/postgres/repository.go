package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mercato/mercato/internal/market"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping market db: %w", err)
	}
	return nil
}

func (r *Repository) CreateClub(ctx context.Context, in market.CreateClubInput) (market.Club, error) {
	query := `
INSERT INTO clubs (name, budget)
VALUES ($1, $2)
RETURNING club_id, created_at`

	club := market.Club{Name: in.Name, Budget: in.Budget}
	if err := r.db.QueryRowContext(ctx, query, in.Name, in.Budget).Scan(&club.ClubID, &club.CreatedAt); err != nil {
		if isPgCode(err, pgUniqueViolation) {
			return market.Club{}, market.ErrDuplicateName
		}
		return market.Club{}, fmt.Errorf("create club: %w", err)
	}
	return club, nil
}

func (r *Repository) GetClub(ctx context.Context, clubID int64) (market.Club, error) {
	query := `
SELECT club_id, name, budget, created_at
FROM clubs
WHERE club_id = $1`

	var club market.Club
	if err := r.db.QueryRowContext(ctx, query, clubID).Scan(
		&club.ClubID,
		&club.Name,
		&club.Budget,
		&club.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Club{}, market.ErrNotFound
		}
		return market.Club{}, fmt.Errorf("get club: %w", err)
	}
	return club, nil
}

func (r *Repository) ListClubs(ctx context.Context) ([]market.Club, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT club_id, name, budget, created_at
FROM clubs
ORDER BY club_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list clubs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	clubs := make([]market.Club, 0)
	for rows.Next() {
		var club market.Club
		if err := rows.Scan(&club.ClubID, &club.Name, &club.Budget, &club.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan club row: %w", err)
		}
		clubs = append(clubs, club)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate club rows: %w", err)
	}
	return clubs, nil
}

func (r *Repository) CreatePlayer(ctx context.Context, in market.CreatePlayerInput) (market.Player, error) {
	query := `
INSERT INTO players (name, position, market_value, club_id)
VALUES ($1, $2, $3, $4)
RETURNING player_id, created_at`

	player := market.Player{
		Name:        in.Name,
		Position:    in.Position,
		MarketValue: in.MarketValue,
		ClubID:      in.ClubID,
	}
	if err := r.db.QueryRowContext(ctx, query, in.Name, in.Position, in.MarketValue, in.ClubID).Scan(&player.PlayerID, &player.CreatedAt); err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return market.Player{}, market.ErrNotFound
		}
		return market.Player{}, fmt.Errorf("create player: %w", err)
	}
	return player, nil
}

func (r *Repository) GetPlayer(ctx context.Context, playerID int64) (market.Player, error) {
	query := `
SELECT player_id, name, position, market_value, club_id, created_at
FROM players
WHERE player_id = $1`

	var player market.Player
	if err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&player.PlayerID,
		&player.Name,
		&player.Position,
		&player.MarketValue,
		&player.ClubID,
		&player.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Player{}, market.ErrNotFound
		}
		return market.Player{}, fmt.Errorf("get player: %w", err)
	}
	return player, nil
}

func (r *Repository) ListPlayers(ctx context.Context, filter market.PlayerFilter) ([]market.Player, error) {
	query := `
SELECT player_id, name, position, market_value, club_id, created_at
FROM players`

	var rows *sql.Rows
	var err error
	if filter.ClubID != nil {
		rows, err = r.db.QueryContext(ctx, query+`
WHERE club_id = $1
ORDER BY player_id ASC`, *filter.ClubID)
	} else {
		rows, err = r.db.QueryContext(ctx, query+`
ORDER BY player_id ASC`)
	}
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer func() { _ = rows.Close() }()

	players := make([]market.Player, 0)
	for rows.Next() {
		var player market.Player
		if err := rows.Scan(
			&player.PlayerID,
			&player.Name,
			&player.Position,
			&player.MarketValue,
			&player.ClubID,
			&player.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan player row: %w", err)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate player rows: %w", err)
	}
	return players, nil
}

// ExecuteTransfer moves a player to a new club in one transaction. The player
// row is locked first, then the buying club; budget is checked under that
// lock so two concurrent signings cannot overspend.
func (r *Repository) ExecuteTransfer(ctx context.Context, in market.TransferInput) (market.Transfer, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return market.Transfer{}, fmt.Errorf("begin transfer tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var fromClubID *int64
	if err := tx.QueryRowContext(ctx, `
SELECT club_id
FROM players
WHERE player_id = $1
FOR UPDATE`, in.PlayerID).Scan(&fromClubID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Transfer{}, market.ErrNotFound
		}
		return market.Transfer{}, fmt.Errorf("lock player row: %w", err)
	}
	if fromClubID != nil && *fromClubID == in.ToClubID {
		return market.Transfer{}, market.ErrSameClub
	}

	var budget int64
	if err := tx.QueryRowContext(ctx, `
SELECT budget
FROM clubs
WHERE club_id = $1
FOR UPDATE`, in.ToClubID).Scan(&budget); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Transfer{}, market.ErrNotFound
		}
		return market.Transfer{}, fmt.Errorf("lock buying club row: %w", err)
	}
	if budget < in.Fee {
		return market.Transfer{}, market.ErrInsufficientBudget
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE clubs
SET budget = budget - $2
WHERE club_id = $1`, in.ToClubID, in.Fee); err != nil {
		return market.Transfer{}, fmt.Errorf("debit buying club: %w", err)
	}
	if fromClubID != nil {
		if _, err := tx.ExecContext(ctx, `
UPDATE clubs
SET budget = budget + $2
WHERE club_id = $1`, *fromClubID, in.Fee); err != nil {
			return market.Transfer{}, fmt.Errorf("credit selling club: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
UPDATE players
SET club_id = $2
WHERE player_id = $1`, in.PlayerID, in.ToClubID); err != nil {
		return market.Transfer{}, fmt.Errorf("reassign player: %w", err)
	}

	transfer := market.Transfer{
		PlayerID:   in.PlayerID,
		FromClubID: fromClubID,
		ToClubID:   in.ToClubID,
		Fee:        in.Fee,
	}
	if err := tx.QueryRowContext(ctx, `
INSERT INTO transfers (player_id, from_club_id, to_club_id, fee)
VALUES ($1, $2, $3, $4)
RETURNING transfer_id, created_at`, in.PlayerID, fromClubID, in.ToClubID, in.Fee).Scan(&transfer.TransferID, &transfer.CreatedAt); err != nil {
		return market.Transfer{}, fmt.Errorf("record transfer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return market.Transfer{}, fmt.Errorf("commit transfer tx: %w", err)
	}
	return transfer, nil
}

func (r *Repository) ListTransfers(ctx context.Context, limit int) ([]market.Transfer, error) {
	query := `
SELECT transfer_id, player_id, from_club_id, to_club_id, fee, created_at
FROM transfers
ORDER BY transfer_id DESC`

	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+`
LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	transfers := make([]market.Transfer, 0)
	for rows.Next() {
		var transfer market.Transfer
		if err := rows.Scan(
			&transfer.TransferID,
			&transfer.PlayerID,
			&transfer.FromClubID,
			&transfer.ToClubID,
			&transfer.Fee,
			&transfer.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transfer row: %w", err)
		}
		transfers = append(transfers, transfer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfer rows: %w", err)
	}
	return transfers, nil
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
