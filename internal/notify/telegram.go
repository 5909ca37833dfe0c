package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zawlinn/boostline-backend/pkg/config"
	"github.com/zawlinn/boostline-backend/pkg/enums"
	"github.com/zawlinn/boostline-backend/pkg/logger"
	"github.com/zawlinn/boostline-backend/pkg/metrics"
)

// Telegram delivers operational events to per-channel Telegram chats.
// Delivery failures are retried a few times with backoff, then the message
// is dropped and counted; nothing upstream ever sees the error.
type Telegram struct {
	cfg     config.NotifyConfig
	client  *http.Client
	logger  *logger.Logger
	metrics *metrics.SettlementMetrics
}

// NewTelegram builds the Telegram notifier.
func NewTelegram(cfg config.NotifyConfig, logg *logger.Logger, m *metrics.SettlementMetrics) (*Telegram, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("notify bot token is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Telegram{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logg,
		metrics: m,
	}, nil
}

// Notify implements Notifier.
func (t *Telegram) Notify(ctx context.Context, channel enums.NotifyChannel, message string) {
	chatID := t.chatFor(channel)
	if chatID == "" {
		t.logger.Warn(ctx, "no chat configured for channel "+channel.String()+", dropping notification")
		t.metrics.IncDroppedNotification()
		return
	}

	attempts := t.cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = t.send(ctx, chatID, message); lastErr == nil {
			return
		}
		if attempt >= attempts {
			break
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
		case <-time.After(t.cfg.RetryBackoff * time.Duration(attempt)):
			continue
		}
		break
	}

	t.logger.Error(ctx, "dropping notification after retry exhaustion", lastErr)
	t.metrics.IncDroppedNotification()
}

func (t *Telegram) send(ctx context.Context, chatID, message string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.cfg.APIBase, "/"), t.cfg.BotToken)
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}
	return nil
}

func (t *Telegram) chatFor(channel enums.NotifyChannel) string {
	switch channel {
	case enums.NotifyChannelFulfillment:
		return t.cfg.FulfillmentChat
	case enums.NotifyChannelFinance:
		return t.cfg.FinanceChat
	case enums.NotifyChannelSupport:
		return t.cfg.SupportChat
	case enums.NotifyChannelCatalog:
		return t.cfg.CatalogChat
	}
	return ""
}
