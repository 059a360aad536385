package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/susu3304/potbot/internal/commands"
	"github.com/susu3304/potbot/internal/db"
	"github.com/susu3304/potbot/internal/game"
	"github.com/susu3304/potbot/internal/money"
)

type sentMessage struct {
	channelID string
	content   string
}

type fakeSession struct {
	sent []sentMessage
	err  error
	// failAfter makes every send after the first failAfter ones fail.
	failAfter int
}

func (f *fakeSession) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.failAfter > 0 && len(f.sent) >= f.failAfter {
		return nil, errors.New("rate limited")
	}
	f.sent = append(f.sent, sentMessage{channelID: channelID, content: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

type fakeReminderStore struct {
	due     []db.ReminderDue
	tasks   map[uuid.UUID][]game.Task
	sent    map[uuid.UUID]time.Time
	delayed map[uuid.UUID]time.Time
}

func (f *fakeReminderStore) DueReminders(context.Context, time.Time) ([]db.ReminderDue, error) {
	return f.due, nil
}

func (f *fakeReminderStore) PendingTasks(_ context.Context, id uuid.UUID) ([]game.Task, error) {
	return f.tasks[id], nil
}

func (f *fakeReminderStore) MarkReminderSent(_ context.Context, id uuid.UUID, _, next time.Time) error {
	f.sent[id] = next
	return nil
}

func (f *fakeReminderStore) DelayReminder(_ context.Context, id uuid.UUID, next time.Time) error {
	f.delayed[id] = next
	return nil
}

func newFakeReminderStore() *fakeReminderStore {
	return &fakeReminderStore{
		tasks:   map[uuid.UUID][]game.Task{},
		sent:    map[uuid.UUID]time.Time{},
		delayed: map[uuid.UUID]time.Time{},
	}
}

func TestReminderTickPostsPendingTasks(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	owing, paid := uuid.New(), uuid.New()
	store := newFakeReminderStore()
	store.due = []db.ReminderDue{
		{SessionID: owing, ChannelID: "ch1", IntervalMinutes: 30},
		{SessionID: paid, ChannelID: "ch2", IntervalMinutes: 30},
	}
	store.tasks[owing] = []game.Task{{Payer: "1", Payee: "2", Amount: money.MustParse("12.5")}}

	session := &fakeSession{}
	w := newReminderWorker(session, store, "USD")
	w.now = func() time.Time { return now }
	w.tick(context.Background())

	require.Len(t, session.sent, 1)
	assert.Equal(t, "ch1", session.sent[0].channelID)
	assert.Contains(t, session.sent[0].content, "<@1> → <@2>: $12.50")
	assert.Contains(t, session.sent[0].content, "自動投稿")
	assert.Equal(t, now.Add(30*time.Minute), store.sent[owing])
	assert.NotContains(t, store.sent, paid)
}

func manyTasks(n int) []game.Task {
	tasks := make([]game.Task, n)
	for i := range tasks {
		tasks[i] = game.Task{
			Payer:  fmt.Sprintf("10000000000000%04d", i),
			Payee:  fmt.Sprintf("20000000000000%04d", i),
			Amount: money.MustParse("123.45"),
		}
	}
	return tasks
}

func TestReminderSplitsLongMessages(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	store := newFakeReminderStore()
	store.due = []db.ReminderDue{{SessionID: id, ChannelID: "ch", IntervalMinutes: 30}}
	store.tasks[id] = manyTasks(120)

	session := &fakeSession{}
	w := newReminderWorker(session, store, "USD")
	w.now = func() time.Time { return now }
	w.tick(context.Background())

	require.Greater(t, len(session.sent), 1)
	var joined []string
	for _, m := range session.sent {
		assert.Equal(t, "ch", m.channelID)
		assert.LessOrEqual(t, len(m.content), commands.MessageLimit)
		joined = append(joined, m.content)
	}
	last := session.sent[len(session.sent)-1].content
	assert.Contains(t, last, "自動投稿")
	all := strings.Join(joined, "\n")
	assert.Contains(t, all, "<@100000000000000000> → <@200000000000000000>")
	assert.Contains(t, all, "<@100000000000000119> → <@200000000000000119>")
	assert.Equal(t, now.Add(30*time.Minute), store.sent[id])
}

func TestReminderPartialSendBacksOff(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	store := newFakeReminderStore()
	store.due = []db.ReminderDue{{SessionID: id, ChannelID: "ch", IntervalMinutes: 60}}
	store.tasks[id] = manyTasks(120)

	session := &fakeSession{failAfter: 1}
	w := newReminderWorker(session, store, "USD")
	w.now = func() time.Time { return now }
	w.tick(context.Background())

	assert.Len(t, session.sent, 1)
	assert.Empty(t, store.sent)
	assert.Equal(t, now.Add(2*time.Minute), store.delayed[id])
}

func TestReminderTickBacksOffOnFailure(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	store := newFakeReminderStore()
	store.due = []db.ReminderDue{{SessionID: id, ChannelID: "ch", IntervalMinutes: 60}}
	store.tasks[id] = []game.Task{{Payer: "1", Payee: "2", Amount: money.MustParse("1")}}

	w := newReminderWorker(&fakeSession{err: errors.New("missing access")}, store, "USD")
	w.now = func() time.Time { return now }
	w.tick(context.Background())

	assert.Empty(t, store.sent)
	assert.Equal(t, now.Add(2*time.Minute), store.delayed[id])
}

func TestReminderStopIsSafe(t *testing.T) {
	w := newReminderWorker(&fakeSession{}, newFakeReminderStore(), "USD")
	w.stop()
	w.start()
	w.stop()

	var nilWorker *reminderWorker
	nilWorker.start()
	nilWorker.stop()
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		interval int
		want     time.Duration
	}{
		{interval: 0, want: 2 * time.Minute},
		{interval: 1, want: time.Minute},
		{interval: 60, want: 2 * time.Minute},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, retryDelay(tc.interval), "interval %d", tc.interval)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTimeout(t *testing.T) {
	assert.True(t, isTimeout(timeoutErr{}))
	assert.True(t, isTimeout(fmt.Errorf("send: %w", timeoutErr{})))
	assert.False(t, isTimeout(errors.New("missing access")))
	assert.False(t, isTimeout(nil))
}
