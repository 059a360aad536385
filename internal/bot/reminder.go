package bot

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/susu3304/potbot/internal/commands"
	"github.com/susu3304/potbot/internal/db"
	"github.com/susu3304/potbot/internal/game"
)

const (
	reminderPollInterval = time.Minute
	reminderMaxBackoff   = 2 * time.Minute
	reminderFooter       = "\n\n※このメッセージは自動投稿です"
)

// reminderWorker periodically posts unpaid settlement tasks to their channels.
type reminderWorker struct {
	store    reminderStore
	session  reminderSession
	currency string
	interval time.Duration
	now      func() time.Time

	cancel context.CancelFunc
	done   sync.WaitGroup
}

// Minimal session interface for sending channel messages.
type reminderSession interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type reminderStore interface {
	DueReminders(ctx context.Context, now time.Time) ([]db.ReminderDue, error)
	PendingTasks(ctx context.Context, sessionID uuid.UUID) ([]game.Task, error)
	MarkReminderSent(ctx context.Context, sessionID uuid.UUID, sentAt, nextDue time.Time) error
	DelayReminder(ctx context.Context, sessionID uuid.UUID, nextDue time.Time) error
}

func newReminderWorker(session reminderSession, store reminderStore, currency string) *reminderWorker {
	return &reminderWorker{
		store:    store,
		session:  session,
		currency: currency,
		interval: reminderPollInterval,
		now:      time.Now,
	}
}

func (w *reminderWorker) start() {
	if w == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done.Add(1)
	go func() {
		defer w.done.Done()
		w.loop(ctx)
	}()
}

// stop cancels any send in flight and waits for the loop to exit.
func (w *reminderWorker) stop() {
	if w == nil || w.cancel == nil {
		return
	}
	w.cancel()
	w.done.Wait()
}

func (w *reminderWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *reminderWorker) tick(ctx context.Context) {
	now := w.now()
	targets, err := w.store.DueReminders(ctx, now)
	if err != nil {
		log.Printf("reminder: failed to load due reminders: %v", err)
		return
	}
	for _, t := range targets {
		if ctx.Err() != nil {
			return
		}
		w.remind(ctx, now, t)
	}
}

func (w *reminderWorker) remind(ctx context.Context, now time.Time, t db.ReminderDue) {
	tasks, err := w.store.PendingTasks(ctx, t.SessionID)
	if err != nil {
		log.Printf("reminder: failed to load tasks for session %s: %v", t.SessionID, err)
		return
	}
	if len(tasks) == 0 {
		return
	}

	msg := game.TasksText(tasks, w.currency) + reminderFooter
	for _, chunk := range commands.SplitMessage(msg, commands.MessageLimit) {
		if err := w.sendWithRetry(ctx, t.ChannelID, chunk); err != nil {
			log.Printf("reminder: failed to send message to channel %s: %v", t.ChannelID, err)
			if derr := w.store.DelayReminder(ctx, t.SessionID, now.Add(retryDelay(t.IntervalMinutes))); derr != nil {
				log.Printf("reminder: failed to delay reminder for session %s: %v", t.SessionID, derr)
			}
			return
		}
	}

	next := now.Add(time.Duration(t.IntervalMinutes) * time.Minute)
	if err := w.store.MarkReminderSent(ctx, t.SessionID, now, next); err != nil {
		log.Printf("reminder: failed to mark reminder sent for session %s: %v", t.SessionID, err)
	}
}

// retryDelay is how long a failed reminder waits: reminderMaxBackoff, or the
// reminder's own interval when that is shorter.
func retryDelay(intervalMinutes int) time.Duration {
	d := reminderMaxBackoff
	if interval := time.Duration(intervalMinutes) * time.Minute; interval > 0 && interval < d {
		d = interval
	}
	return d
}

func (w *reminderWorker) sendWithRetry(ctx context.Context, channelID, content string) error {
	const attemptTimeout = 12 * time.Second
	const maxAttempts = 2

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		_, err := w.session.ChannelMessageSend(channelID, content, discordgo.WithContext(sendCtx))
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTimeout(err) {
			return err
		}
		select {
		case <-time.After(time.Duration(300+rand.Intn(500)) * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
