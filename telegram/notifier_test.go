package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestNotifier_SendsToLinkedChats(t *testing.T) {
	sender := &fakeSender{}
	n := NewNotifier(sender)
	ctx := context.Background()

	alice := &models.User{ID: 1, Username: "alice", DisplayName: "<Alice>", TelegramChatID: 100}
	bob := &models.User{ID: 2, Username: "bob", TelegramChatID: 200}
	unlinked := &models.User{ID: 3, Username: "carol"}

	n.FriendRequestReceived(ctx, bob, alice)
	n.FriendRequestAccepted(ctx, alice, bob)
	n.FriendRequestReceived(ctx, unlinked, alice)
	n.CalendarShared(ctx, []*models.User{bob, unlinked}, alice, &models.Calendar{Name: "Trips"}, models.PermissionEdit)
	n.Close()

	require.Len(t, sender.sent, 3)
	byChat := map[int64][]string{}
	for _, msg := range sender.sent {
		assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
		byChat[msg.ChatID] = append(byChat[msg.ChatID], msg.Text)
	}

	require.Len(t, byChat[200], 2)
	joined := strings.Join(byChat[200], "\n")
	assert.Contains(t, joined, "&lt;Alice&gt;")
	assert.Contains(t, joined, "Trips")
	require.Len(t, byChat[100], 1)
	assert.Contains(t, byChat[100][0], "bob")
}

func TestNotifier_SendErrorsAreSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("boom")}
	n := NewNotifier(sender)

	u := &models.User{Username: "bob", TelegramChatID: 7}
	n.FriendRequestAccepted(context.Background(), u, u)
	n.Close()
	n.Close()

	// Messages after Close are dropped.
	n.FriendRequestAccepted(context.Background(), u, u)
	assert.Len(t, sender.sent, 1)
}
