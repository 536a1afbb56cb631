package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"news-impact-alerts/internal/schema"
)

// Notification 封装告警上下文。
type Notification struct {
	Event schema.Event
}

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().
		Str("event_id", note.Event.EventID).
		Str("severity", string(note.Event.Severity)).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(note Notification) string {
	e := note.Event

	builder := strings.Builder{}
	builder.WriteString("[News Impact Alert]\n")
	builder.WriteString(fmt.Sprintf("Headline: %s\n", e.Headline))
	builder.WriteString(fmt.Sprintf("Source: %s\n", e.Source))
	builder.WriteString(fmt.Sprintf("Time: %s UTC\n", e.Timestamp.UTC().Format(time.RFC3339)))
	builder.WriteString(fmt.Sprintf("Severity: %s | Sentiment: %s | Pressure: %s\n", e.Severity, e.EventSentiment, e.MarketPressure))
	builder.WriteString(fmt.Sprintf("Macro effect: %s\n", e.MacroEffect))
	if len(e.AffectedAssets) > 0 {
		a := e.AffectedAssets[0]
		builder.WriteString(fmt.Sprintf("Top asset: %s (%s) %s conf=%.2f\n", a.Ticker, a.Name, a.Prediction, a.Confidence))
	}
	if e.Why != "" {
		builder.WriteString(fmt.Sprintf("Why: %s\n", e.Why))
	}
	return builder.String()
}

// HighSeverityAlerter 过滤事件流，仅对 HIGH 级别事件发送告警。它实现了
// 管道的 sink 接口，失败不会阻断事件入库。
type HighSeverityAlerter struct {
	notifier Notifier
	logger   zerolog.Logger
}

// NewHighSeverityAlerter wraps a notifier as a pipeline sink.
func NewHighSeverityAlerter(notifier Notifier, logger zerolog.Logger) *HighSeverityAlerter {
	return &HighSeverityAlerter{
		notifier: notifier,
		logger:   logger.With().Str("component", "alerter").Logger(),
	}
}

// Publish sends an alert when the event is HIGH severity.
func (h *HighSeverityAlerter) Publish(ctx context.Context, event schema.Event) error {
	if event.Severity != schema.SeverityHigh {
		return nil
	}
	if err := h.notifier.Notify(ctx, Notification{Event: event}); err != nil {
		return fmt.Errorf("send high severity alert: %w", err)
	}
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
