// Package telegram delivers friend and sharing notifications to users who
// linked a Telegram chat to their profile.
package telegram

import (
	"context"
	"fmt"
	"html"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/pkg/logger"
)

const (
	workerCount = 4
	queueSize   = 256
)

// Sender is the part of tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier queues messages and sends them from a small worker pool so a slow
// Telegram API never holds up a request. A full queue drops the message.
type Notifier struct {
	sender Sender
	queue  chan tgbotapi.MessageConfig

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewBotAPI authorizes against Telegram with token.
func NewBotAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = debug
	logger.Info("Authorized on account", "username", api.Self.UserName)
	return api, nil
}

func NewNotifier(sender Sender) *Notifier {
	n := &Notifier{
		sender: sender,
		queue:  make(chan tgbotapi.MessageConfig, queueSize),
	}
	for i := 0; i < workerCount; i++ {
		n.wg.Add(1)
		go n.startWorker()
	}
	return n
}

func (n *Notifier) startWorker() {
	defer n.wg.Done()
	for msg := range n.queue {
		if _, err := n.sender.Send(msg); err != nil {
			logger.Warn("Telegram send failed", "chat_id", msg.ChatID, "error", err)
		}
	}
}

// Close stops accepting messages and waits for the queue to drain.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()
	})
	n.wg.Wait()
}

func (n *Notifier) enqueue(chatID int64, text string) {
	if chatID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return
	}
	select {
	case n.queue <- msg:
	default:
		logger.Warn("Telegram queue full, dropping message", "chat_id", chatID)
	}
}

func (n *Notifier) FriendRequestReceived(_ context.Context, to, from *models.User) {
	n.enqueue(to.TelegramChatID, fmt.Sprintf("👋 <b>%s</b> (@%s) sent you a friend request.",
		html.EscapeString(displayName(from)), html.EscapeString(from.Username)))
}

func (n *Notifier) FriendRequestAccepted(_ context.Context, to, by *models.User) {
	n.enqueue(to.TelegramChatID, fmt.Sprintf("🤝 <b>%s</b> accepted your friend request.",
		html.EscapeString(displayName(by))))
}

func (n *Notifier) CalendarShared(_ context.Context, to []*models.User, owner *models.User, calendar *models.Calendar, permission string) {
	text := fmt.Sprintf("📅 <b>%s</b> shared the calendar <b>%s</b> with you (%s).",
		html.EscapeString(displayName(owner)), html.EscapeString(calendar.Name), permission)
	for _, u := range to {
		n.enqueue(u.TelegramChatID, text)
	}
}

func displayName(u *models.User) string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
