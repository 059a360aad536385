package game

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/susu3304/potbot/internal/ledger"
	"github.com/susu3304/potbot/internal/money"
)

// ErrNoActiveGame is returned by a Store when a channel has no open game.
var ErrNoActiveGame = errors.New("no active game")

// Store persists games and their history. The service works without one.
type Store interface {
	CreateGame(ctx context.Context, guildID int64, channelID string) (uuid.UUID, error)
	ActiveGame(ctx context.Context, channelID string) (id uuid.UUID, guildID int64, err error)
	CloseGame(ctx context.Context, gameID uuid.UUID) error

	AddMember(ctx context.Context, gameID uuid.UUID, userID string) error
	Members(ctx context.Context, gameID uuid.UUID) ([]string, error)

	SaveTransaction(ctx context.Context, tx ledger.Transaction) error
	UpdateTransaction(ctx context.Context, tx ledger.Transaction) error
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	Transactions(ctx context.Context, gameID uuid.UUID) ([]ledger.Transaction, error)

	// SaveSession stores the session and closes s.GameID in one transaction.
	SaveSession(ctx context.Context, s *Session) error
	// LatestSession returns nil without error when the channel never settled.
	LatestSession(ctx context.Context, channelID string) (*Session, error)
	// RecordTaskPayment returns what payer still owes payee after the payment.
	RecordTaskPayment(ctx context.Context, sessionID uuid.UUID, payerID, payeeID string, amount money.Amount, recordedBy string) (money.Amount, error)
}
