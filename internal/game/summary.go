package game

import (
	"fmt"
	"strings"

	"github.com/susu3304/potbot/internal/ledger"
	"github.com/susu3304/potbot/internal/money"
	"github.com/susu3304/potbot/internal/settle"
)

// StatusText renders live balances and their validation for a channel message.
func StatusText(b money.Balances, v settle.Validation, currency string) string {
	if len(b) == 0 {
		return "参加者がいません"
	}
	var sb strings.Builder
	for _, id := range b.IDs() {
		fmt.Fprintf(&sb, "<@%s> %s\n", id, money.Format(b[id], currency))
	}
	fmt.Fprintf(&sb, "合計: %s", money.Format(v.Sum, currency))
	if !v.Valid {
		fmt.Fprintf(&sb, "\n⚠ %s", v.Reason)
	}
	return sb.String()
}

// SessionText renders a settled session as payment instructions.
func SessionText(sess *Session, currency string) string {
	var sb strings.Builder
	if sess.AutoBalanced {
		sb.WriteString("合計が0にならないため自動調整しました\n")
	}
	if len(sess.Transfers) == 0 {
		sb.WriteString("精算は不要です")
		return sb.String()
	}
	sb.WriteString("支払タスク:\n")
	for _, t := range sess.Transfers {
		fmt.Fprintf(&sb, "<@%s> → <@%s>: %s\n", t.Payer, t.Payee, money.Format(t.Amount, currency))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// TasksText renders unpaid tasks.
func TasksText(tasks []Task, currency string) string {
	if len(tasks) == 0 {
		return "未払いのタスクはありません"
	}
	var sb strings.Builder
	sb.WriteString("未払い:\n")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "<@%s> → <@%s>: %s\n", t.Payer, t.Payee, money.Format(t.Amount, currency))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// LogText renders the transaction log, one line per entry with its id for edit/delete.
func LogText(txs []ledger.Transaction, currency string) string {
	if len(txs) == 0 {
		return "記録はありません"
	}
	var sb strings.Builder
	for _, tx := range txs {
		fmt.Fprintf(&sb, "`%s` %s <@%s> %s", tx.ID, tx.Timestamp.Format("15:04"), tx.Participant, KindLabel(tx.Kind))
		fmt.Fprintf(&sb, " %s", money.Format(tx.Amount, currency))
		if tx.Note != "" {
			fmt.Fprintf(&sb, " (%s)", tx.Note)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// KindLabel is the display name of a transaction kind.
func KindLabel(k ledger.Kind) string {
	switch k {
	case ledger.BuyIn:
		return "バイイン"
	case ledger.CashOut:
		return "キャッシュアウト"
	case ledger.Adjustment:
		return "残高修正"
	}
	return string(k)
}
