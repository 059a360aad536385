package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/susu3304/potbot/internal/db"
	"github.com/susu3304/potbot/internal/game"
	"github.com/susu3304/potbot/internal/ledger"
	"github.com/susu3304/potbot/internal/money"
	"github.com/susu3304/potbot/internal/settle"
)

// Reminders schedules unpaid-task reminders for a settled session.
type Reminders interface {
	UpsertReminder(ctx context.Context, sessionID uuid.UUID, enabled bool, intervalMinutes int, nextDueAt *time.Time) error
	// ReminderConfig returns nil when the session has no reminder.
	ReminderConfig(ctx context.Context, sessionID uuid.UUID) (*db.ReminderConfig, error)
}

// Game handles the /game command.
type Game struct {
	svc              *game.Service
	reminders        Reminders
	autoBalance      bool
	reminderInterval int
	webBase          string
	now              func() time.Time
}

// NewGame wires /game to svc. reminders may be nil, which disables /game remind.
// When webBase is set, settlement replies link to the session page under it.
func NewGame(svc *game.Service, reminders Reminders, autoBalance bool, reminderIntervalMinutes int, webBase string) *Game {
	return &Game{
		svc:              svc,
		reminders:        reminders,
		autoBalance:      autoBalance,
		reminderInterval: reminderIntervalMinutes,
		webBase:          strings.TrimSuffix(webBase, "/"),
		now:              time.Now,
	}
}

func (g *Game) sessionURL(guildID int64, id uuid.UUID) string {
	return fmt.Sprintf("%s/guilds/%d/sessions/%s", g.webBase, guildID, id)
}

type request struct {
	guildID   int64
	channelID string
	userID    string
	sub       *discordgo.ApplicationCommandInteractionDataOption
}

func HandleGame(s *discordgo.Session, i *discordgo.InteractionCreate, g *Game) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "サブコマンドが指定されていません")
		return
	}

	req := request{
		guildID:   ParseGuildID(i.GuildID),
		channelID: i.ChannelID,
		userID:    interactionUserID(i),
		sub:       data.Options[0],
	}
	respondLong(s, i, g.run(context.Background(), req))
}

func (g *Game) run(ctx context.Context, req request) string {
	opts := req.sub.Options
	ch := req.channelID
	cur := g.svc.Currency()

	switch req.sub.Name {
	case "start":
		restored, err := g.svc.Start(ctx, req.guildID, ch)
		if err != nil {
			return errorText(err)
		}
		if restored {
			return "中断していたゲームを再開しました"
		}
		return "このチャンネルでゲームを開始しました"

	case "stop":
		if err := g.svc.Stop(ctx, ch); err != nil {
			return errorText(err)
		}
		return "精算せずにゲームを終了しました"

	case "join":
		uid := optionUserID(opts, "user", req.userID)
		joined, err := g.svc.Join(ctx, ch, uid)
		if err != nil {
			return errorText(err)
		}
		if !joined {
			return fmt.Sprintf("<@%s> は既に参加しています", uid)
		}
		return fmt.Sprintf("<@%s> を参加者に追加しました", uid)

	case "buyin", "cashout", "adjust":
		amount, msg := parseAmountOption(opts, "amount")
		if msg != "" {
			return msg
		}
		uid := optionUserID(opts, "user", req.userID)
		note := ""
		if v := getStringOption(opts, "note"); v != nil {
			note = *v
		}
		var tx ledger.Transaction
		var err error
		switch req.sub.Name {
		case "buyin":
			tx, err = g.svc.BuyIn(ctx, ch, uid, amount, note)
		case "cashout":
			tx, err = g.svc.CashOut(ctx, ch, uid, amount, note)
		default:
			tx, err = g.svc.Adjust(ctx, ch, uid, amount, note)
		}
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("<@%s> %s %s を記録しました (`%s`)", uid, game.KindLabel(tx.Kind), money.Format(tx.Amount, cur), tx.ID)

	case "edit":
		id, msg := parseIDOption(opts)
		if msg != "" {
			return msg
		}
		amount, msg := parseAmountOption(opts, "amount")
		if msg != "" {
			return msg
		}
		tx, err := g.svc.Edit(ctx, ch, id, amount)
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("`%s` を %s に修正しました", tx.ID, money.Format(tx.Amount, cur))

	case "delete":
		id, msg := parseIDOption(opts)
		if msg != "" {
			return msg
		}
		tx, err := g.svc.Delete(ctx, ch, id)
		if err != nil {
			return errorText(err)
		}
		return fmt.Sprintf("<@%s> の%s %s を削除しました", tx.Participant, game.KindLabel(tx.Kind), money.Format(tx.Amount, cur))

	case "status":
		b, v, err := g.svc.Status(ch)
		if err != nil {
			return errorText(err)
		}
		return game.StatusText(b, v, cur)

	case "log":
		txs, err := g.svc.Transactions(ch)
		if err != nil {
			return errorText(err)
		}
		return game.LogText(txs, cur)

	case "settle":
		opt := settle.Options{AutoBalance: g.autoBalance}
		if v := getBoolOption(opts, "auto_balance"); v != nil {
			opt.AutoBalance = *v
		}
		if v := getStringOption(opts, "policy"); v != nil {
			p, err := settle.ParsePolicy(*v)
			if err != nil {
				return errorText(err)
			}
			opt.Policy = p
		}
		sess, err := g.svc.Settle(ctx, ch, opt)
		if err != nil {
			return errorText(err)
		}
		if len(sess.Tasks) > 0 && g.reminders != nil {
			next := g.now().Add(time.Duration(g.reminderInterval) * time.Minute)
			if err := g.reminders.UpsertReminder(ctx, sess.ID, true, g.reminderInterval, &next); err != nil {
				log.Printf("commands: failed to schedule reminder for session %s: %v", sess.ID, err)
			}
		}
		text := game.SessionText(sess, cur)
		if g.webBase != "" {
			text += "\n" + g.sessionURL(req.guildID, sess.ID)
		}
		return text

	case "done":
		payee := optionUserID(opts, "user", "")
		if payee == "" {
			return "相手の指定が必要です"
		}
		var amount money.Amount
		if v := getStringOption(opts, "amount"); v != nil && *v != "" {
			a, msg := parseAmount(*v)
			if msg != "" {
				return msg
			}
			amount = a
		} else {
			tasks, err := g.svc.PendingTasks(ctx, ch)
			if err != nil {
				return errorText(err)
			}
			amount = owed(tasks, req.userID, payee)
			if amount.IsZero() {
				return errorText(game.ErrTaskNotFound)
			}
		}
		remaining, err := g.svc.Pay(ctx, ch, req.userID, payee, amount, req.userID)
		if err != nil {
			return errorText(err)
		}
		if remaining.IsZero() {
			return fmt.Sprintf("<@%s> → <@%s> の支払いが完了しました", req.userID, payee)
		}
		return fmt.Sprintf("<@%s> → <@%s>: %s を記録しました (残り %s)", req.userID, payee, money.Format(amount, cur), money.Format(remaining, cur))

	case "tasks":
		tasks, err := g.svc.PendingTasks(ctx, ch)
		if err != nil {
			return errorText(err)
		}
		return game.TasksText(tasks, cur)

	case "remind":
		if g.reminders == nil {
			return "リマインドは利用できません"
		}
		enabled := getBoolOption(opts, "enabled")
		interval := g.reminderInterval
		if v := getIntOption(opts, "interval"); v != nil {
			if *v <= 0 {
				return "間隔は1分以上で指定してください"
			}
			interval = int(*v)
		}
		sess, err := g.svc.LastSession(ctx, ch)
		if err != nil {
			return errorText(err)
		}
		if enabled == nil {
			return g.reminderStatus(ctx, sess.ID)
		}
		next := g.now().Add(time.Duration(interval) * time.Minute)
		if err := g.reminders.UpsertReminder(ctx, sess.ID, *enabled, interval, &next); err != nil {
			log.Printf("commands: failed to update reminder for session %s: %v", sess.ID, err)
			return "リマインドの設定に失敗しました"
		}
		if !*enabled {
			return "リマインドを停止しました"
		}
		return fmt.Sprintf("%d 分ごとに未払いをリマインドします", interval)
	}
	return "未知のサブコマンドです"
}

func (g *Game) reminderStatus(ctx context.Context, sessionID uuid.UUID) string {
	cfg, err := g.reminders.ReminderConfig(ctx, sessionID)
	if err != nil {
		log.Printf("commands: failed to load reminder for session %s: %v", sessionID, err)
		return "リマインドの取得に失敗しました"
	}
	if cfg == nil || !cfg.Enabled {
		return "リマインドは停止中です"
	}
	msg := fmt.Sprintf("%d 分ごとにリマインド中です", cfg.IntervalMinutes)
	if cfg.NextDueAt != nil {
		msg += fmt.Sprintf(" (次回 <t:%d:R>)", cfg.NextDueAt.Unix())
	}
	return msg
}

// owed is the total still due from payer to payee.
func owed(tasks []game.Task, payer, payee string) money.Amount {
	total := money.Zero
	for _, t := range tasks {
		if t.Payer == payer && t.Payee == payee {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// errorText turns service errors into a reply. Unknown errors are logged and hidden.
func errorText(err error) string {
	var unbalanced *settle.UnbalancedError
	switch {
	case errors.As(err, &unbalanced):
		return fmt.Sprintf("合計が0になっていません (差額 %s)。auto_balance:True で自動調整できます", unbalanced.Residual)
	case errors.Is(err, game.ErrNotStarted):
		return "ゲームが開始されていません"
	case errors.Is(err, game.ErrAlreadyStarted):
		return "既に開始されています"
	case errors.Is(err, game.ErrNoSettlement):
		return "精算の記録がありません"
	case errors.Is(err, game.ErrTaskNotFound):
		return "その相手への未払いはありません"
	case errors.Is(err, game.ErrInvalidAmount):
		return "金額は0より大きくしてください"
	case errors.Is(err, ledger.ErrNotFound):
		return "その記録は見つかりません"
	case errors.Is(err, ledger.ErrNegativeAmount):
		return "金額にマイナスは指定できません"
	case errors.Is(err, settle.ErrUnknownPolicy):
		return "自動調整の対象が不正です"
	}
	log.Printf("commands: %v", err)
	return "処理に失敗しました"
}
