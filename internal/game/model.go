package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/susu3304/potbot/internal/ledger"
	"github.com/susu3304/potbot/internal/money"
	"github.com/susu3304/potbot/internal/settle"
)

// Game is the live state of one channel between start and settle.
type Game struct {
	ID        uuid.UUID
	GuildID   int64
	ChannelID string
	Members   map[string]struct{}
	ledger    *ledger.Ledger
}

// Session is the frozen record of a settled game. It is never edited afterwards.
type Session struct {
	ID           uuid.UUID         `json:"id"`
	GameID       uuid.UUID         `json:"game_id"`
	GuildID      int64             `json:"guild_id,string"`
	ChannelID    string            `json:"channel_id"`
	Date         time.Time         `json:"date"`
	Balances     money.Balances    `json:"balances"`
	Transfers    []settle.Transfer `json:"transfers"`
	AutoBalanced bool              `json:"auto_balanced"`
	Tasks        []Task            `json:"tasks"`
}

// Task tracks whether one transfer of a session has been paid.
type Task struct {
	Payer     string       `json:"payer"`
	Payee     string       `json:"payee"`
	Amount    money.Amount `json:"amount"`
	Completed bool         `json:"completed"`
}
