package commands

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/potbot/internal/db"
	"github.com/susu3304/potbot/internal/game"
)

type option = discordgo.ApplicationCommandInteractionDataOption

func sub(name string, opts ...*option) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}

func str(name, v string) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: v}
}

func usr(id string) *option {
	return &option{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: id}
}

func boolean(name string, v bool) *option {
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: v}
}

func integer(name string, v int) *option {
	// Discord sends JSON numbers, which decode as float64
	return &option{Name: name, Type: discordgo.ApplicationCommandOptionInteger, Value: float64(v)}
}

type reminderCall struct {
	session  uuid.UUID
	enabled  bool
	interval int
	next     time.Time
}

type fakeReminders struct {
	calls   []reminderCall
	configs map[uuid.UUID]*db.ReminderConfig
}

func (f *fakeReminders) UpsertReminder(_ context.Context, id uuid.UUID, enabled bool, interval int, next *time.Time) error {
	f.calls = append(f.calls, reminderCall{session: id, enabled: enabled, interval: interval, next: *next})
	if f.configs == nil {
		f.configs = map[uuid.UUID]*db.ReminderConfig{}
	}
	f.configs[id] = &db.ReminderConfig{Enabled: enabled, IntervalMinutes: interval, NextDueAt: next}
	return nil
}

func (f *fakeReminders) ReminderConfig(_ context.Context, id uuid.UUID) (*db.ReminderConfig, error) {
	return f.configs[id], nil
}

var clock = time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)

func newTestGame(autoBalance bool) (*Game, *fakeReminders) {
	rem := &fakeReminders{}
	g := NewGame(game.NewService(nil, "USD"), rem, autoBalance, 60, "http://localhost:3000/")
	g.now = func() time.Time { return clock }
	return g, rem
}

func (g *Game) as(user string, s *option) string {
	return g.run(context.Background(), request{guildID: 1, channelID: "ch", userID: user, sub: s})
}

func TestGameFlow(t *testing.T) {
	g, rem := newTestGame(true)

	assert.Equal(t, "このチャンネルでゲームを開始しました", g.as("1", sub("start")))
	assert.Equal(t, "既に開始されています", g.as("1", sub("start")))

	assert.Contains(t, g.as("1", sub("buyin", str("amount", "50"))), "<@1> バイイン $50.00 を記録しました")
	assert.Contains(t, g.as("1", sub("buyin", str("amount", "50"), usr("2"))), "<@2> バイイン")
	assert.Contains(t, g.as("1", sub("cashout", str("amount", "20"))), "キャッシュアウト $20.00")
	assert.Contains(t, g.as("2", sub("cashout", str("amount", "80"), str("note", "big pot"))), "<@2> キャッシュアウト $80.00")
	assert.Equal(t, "<@3> を参加者に追加しました", g.as("1", sub("join", usr("3"))))
	assert.Equal(t, "<@1> は既に参加しています", g.as("1", sub("join")))

	status := g.as("1", sub("status"))
	assert.Contains(t, status, "<@1> -$30.00")
	assert.Contains(t, status, "<@2> $30.00")
	assert.Contains(t, status, "<@3> $0.00")
	assert.NotContains(t, status, "⚠")

	assert.Contains(t, g.as("1", sub("log")), "(big pot)")

	settled := g.as("1", sub("settle"))
	assert.Contains(t, settled, "<@1> → <@2>: $30.00")
	require.Len(t, rem.calls, 1)
	assert.True(t, rem.calls[0].enabled)
	assert.Equal(t, 60, rem.calls[0].interval)
	assert.Equal(t, clock.Add(time.Hour), rem.calls[0].next)
	assert.Contains(t, settled, "http://localhost:3000/guilds/1/sessions/"+rem.calls[0].session.String())

	assert.Equal(t, "ゲームが開始されていません", g.as("1", sub("status")))

	assert.Equal(t, "<@1> → <@2>: $10.00 を記録しました (残り $20.00)", g.as("1", sub("done", usr("2"), str("amount", "10"))))
	assert.Contains(t, g.as("1", sub("tasks")), "<@1> → <@2>: $20.00")
	assert.Equal(t, "<@1> → <@2> の支払いが完了しました", g.as("1", sub("done", usr("2"))))
	assert.Equal(t, "未払いのタスクはありません", g.as("1", sub("tasks")))
	assert.Equal(t, "その相手への未払いはありません", g.as("1", sub("done", usr("2"))))
}

func TestGameSettleWithoutWebUI(t *testing.T) {
	g := NewGame(game.NewService(nil, "USD"), nil, true, 60, "")
	g.as("1", sub("start"))
	g.as("1", sub("buyin", str("amount", "10")))
	g.as("2", sub("cashout", str("amount", "10")))

	out := g.as("1", sub("settle"))
	assert.Contains(t, out, "<@1> → <@2>: $10.00")
	assert.NotContains(t, out, "/sessions/")
}

func TestGameRejectsBadInput(t *testing.T) {
	g, _ := newTestGame(true)

	assert.Equal(t, "ゲームが開始されていません", g.as("1", sub("buyin", str("amount", "5"))))
	g.as("1", sub("start"))

	tests := []struct {
		name string
		cmd  *option
		want string
	}{
		{name: "garbage amount", cmd: sub("buyin", str("amount", "five")), want: `金額を認識できませんでした: "five"`},
		{name: "lone minus", cmd: sub("cashout", str("amount", "-")), want: "金額を入力してください"},
		{name: "empty", cmd: sub("cashout", str("amount", " ")), want: "金額を入力してください"},
		{name: "negative buy-in", cmd: sub("buyin", str("amount", "-5")), want: "金額にマイナスは指定できません"},
		{name: "zero cash-out", cmd: sub("cashout", str("amount", "0")), want: "金額は0より大きくしてください"},
		{name: "bad id", cmd: sub("delete", str("id", "nope")), want: "記録IDを認識できませんでした"},
		{name: "unknown id", cmd: sub("delete", str("id", uuid.NewString())), want: "その記録は見つかりません"},
		{name: "no payee", cmd: sub("done"), want: "相手の指定が必要です"},
		{name: "unknown", cmd: sub("rebuy"), want: "未知のサブコマンドです"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.as("1", tc.cmd))
		})
	}
}

func TestGameEditAndDelete(t *testing.T) {
	g, _ := newTestGame(true)
	g.as("1", sub("start"))
	g.as("1", sub("buyin", str("amount", "40")))

	txs, err := g.svc.Transactions("ch")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	id := txs[0].ID.String()

	assert.Equal(t, "`"+id+"` を $60.00 に修正しました", g.as("1", sub("edit", str("id", "`"+id+"`"), str("amount", "60"))))
	assert.Contains(t, g.as("1", sub("status")), "<@1> -$60.00")

	assert.Equal(t, "<@1> のバイイン $60.00 を削除しました", g.as("1", sub("delete", str("id", id))))
	assert.Equal(t, "記録はありません", g.as("1", sub("log")))
}

func TestGameSettleUnbalanced(t *testing.T) {
	g, rem := newTestGame(false)
	g.as("1", sub("start"))
	g.as("1", sub("adjust", str("amount", "-10")))
	g.as("2", sub("adjust", str("amount", "5")))

	assert.Contains(t, g.as("1", sub("status")), "⚠ balances sum to -5.00 instead of 0")
	assert.Contains(t, g.as("1", sub("settle")), "差額 -5.00")
	assert.Empty(t, rem.calls)

	out := g.as("1", sub("settle", boolean("auto_balance", true)))
	assert.Contains(t, out, "自動調整しました")
	assert.Contains(t, out, "<@1> → <@2>: $7.50")
}

func TestGameRemind(t *testing.T) {
	g, rem := newTestGame(true)
	assert.Equal(t, "精算の記録がありません", g.as("1", sub("remind", boolean("enabled", true))))

	g.as("1", sub("start"))
	g.as("1", sub("buyin", str("amount", "10")))
	g.as("2", sub("cashout", str("amount", "10")))
	g.as("1", sub("settle"))
	require.Len(t, rem.calls, 1)

	assert.Equal(t, "15 分ごとに未払いをリマインドします", g.as("1", sub("remind", boolean("enabled", true), integer("interval", 15))))
	next := clock.Add(15 * time.Minute).Unix()
	assert.Equal(t, fmt.Sprintf("15 分ごとにリマインド中です (次回 <t:%d:R>)", next), g.as("1", sub("remind")))
	assert.Equal(t, "リマインドを停止しました", g.as("1", sub("remind", boolean("enabled", false))))
	assert.Equal(t, "リマインドは停止中です", g.as("1", sub("remind")))
	require.Len(t, rem.calls, 3)
	assert.Equal(t, 15, rem.calls[1].interval)
	assert.False(t, rem.calls[2].enabled)
	assert.Equal(t, rem.calls[0].session, rem.calls[2].session)
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, SplitMessage("short", 10))
	assert.Equal(t, []string{"aaaa\nbbbb", "cccc"}, SplitMessage("aaaa\nbbbb\ncccc", 10))

	long := strings.Repeat("あ", 5) // 15 bytes
	chunks := SplitMessage(long, 7)
	assert.Equal(t, []string{"ああ", "ああ", "あ"}, chunks)

	for _, c := range SplitMessage(strings.Repeat("line of text\n", 400), MessageLimit) {
		assert.LessOrEqual(t, len(c), MessageLimit)
	}
}
