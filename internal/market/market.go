// Package market defines the transfer-market domain: clubs, players, and the
// budget-constrained transfer ledger connecting them.
package market

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound           = errors.New("market: not found")
	ErrDuplicateName      = errors.New("market: name already taken")
	ErrInsufficientBudget = errors.New("market: insufficient budget")
	ErrSameClub           = errors.New("market: player already at club")
)

// Positions a player may hold. Stored as-is; the players table enforces the
// same set with a check constraint.
const (
	PositionGoalkeeper = "GK"
	PositionDefender   = "DF"
	PositionMidfielder = "MF"
	PositionForward    = "FW"
)

func ValidPosition(position string) bool {
	switch position {
	case PositionGoalkeeper, PositionDefender, PositionMidfielder, PositionForward:
		return true
	default:
		return false
	}
}

type Repository interface {
	HealthCheck(ctx context.Context) error
	CreateClub(ctx context.Context, in CreateClubInput) (Club, error)
	GetClub(ctx context.Context, clubID int64) (Club, error)
	ListClubs(ctx context.Context) ([]Club, error)
	CreatePlayer(ctx context.Context, in CreatePlayerInput) (Player, error)
	GetPlayer(ctx context.Context, playerID int64) (Player, error)
	ListPlayers(ctx context.Context, filter PlayerFilter) ([]Player, error)
	ExecuteTransfer(ctx context.Context, in TransferInput) (Transfer, error)
	ListTransfers(ctx context.Context, limit int) ([]Transfer, error)
}

type Club struct {
	ClubID    int64
	Name      string
	Budget    int64
	CreatedAt time.Time
}

type Player struct {
	PlayerID    int64
	Name        string
	Position    string
	MarketValue int64
	ClubID      *int64
	CreatedAt   time.Time
}

// Transfer is an immutable ledger row. FromClubID is nil when the player was
// signed as a free agent.
type Transfer struct {
	TransferID int64
	PlayerID   int64
	FromClubID *int64
	ToClubID   int64
	Fee        int64
	CreatedAt  time.Time
}

type CreateClubInput struct {
	Name   string
	Budget int64
}

type CreatePlayerInput struct {
	Name        string
	Position    string
	MarketValue int64
	ClubID      *int64
}

type PlayerFilter struct {
	ClubID *int64
}

type TransferInput struct {
	PlayerID int64
	ToClubID int64
	Fee      int64
}
