package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

const telegramMaxMessageLen = 4096

// telegramUpdateSchema is the shape we require of an incoming webhook update
// before decoding it. Anything else is rejected with 400.
const telegramUpdateSchema = `{
	"type": "object",
	"required": ["update_id"],
	"properties": {
		"update_id": {"type": "integer"},
		"message": {
			"type": "object",
			"required": ["chat", "from"],
			"properties": {
				"text": {"type": "string"},
				"caption": {"type": "string"},
				"chat": {
					"type": "object",
					"required": ["id"],
					"properties": {"id": {"type": "integer"}}
				},
				"from": {
					"type": "object",
					"required": ["id"],
					"properties": {"id": {"type": "integer"}}
				},
				"document": {
					"type": "object",
					"required": ["file_id"],
					"properties": {
						"file_id": {"type": "string"},
						"file_name": {"type": "string"}
					}
				}
			}
		}
	}
}`

// TelegramChannel implements the Channel interface for the Telegram Bot API.
// Inbound updates arrive either via long polling (Start) or via a webhook
// handler (WebhookHandler); both feed the same mapping.
type TelegramChannel struct {
	token        string
	baseURL      string
	client       *http.Client
	offset       int
	updateSchema *gojsonschema.Schema
	stop         chan struct{}
}

// NewTelegramChannel creates a Telegram channel adapter.
func NewTelegramChannel(token string) (*TelegramChannel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is required (COURSE_TELEGRAM_BOT_TOKEN)")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(telegramUpdateSchema))
	if err != nil {
		return nil, fmt.Errorf("compile update schema: %w", err)
	}
	return &TelegramChannel{
		token:   token,
		baseURL: "https://api.telegram.org/bot" + token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		updateSchema: schema,
		stop:         make(chan struct{}),
	}, nil
}

func (t *TelegramChannel) SendTyping(_ context.Context, userID string) error {
	params := url.Values{
		"chat_id": {userID},
		"action":  {"typing"},
	}
	resp, err := t.client.PostForm(t.baseURL+"/sendChatAction", params)
	if err != nil {
		return fmt.Errorf("sending typing indicator: %w", err)
	}
	_ = resp.Body.Close()
	return nil
}

func (t *TelegramChannel) SendMessage(ctx context.Context, userID string, msg OutboundMessage) error {
	parts := SplitMessage(msg.Text, telegramMaxMessageLen)

	for _, part := range parts {
		params := url.Values{
			"chat_id": {userID},
			"text":    {part},
		}
		if msg.ParseMode != "" {
			params.Set("parse_mode", msg.ParseMode)
		}

		resp, err := t.client.PostForm(t.baseURL+"/sendMessage", params)
		if err != nil {
			return fmt.Errorf("sending Telegram message: %w", err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			// If Markdown parsing fails, retry without parse mode
			if msg.ParseMode != "" && resp.StatusCode == http.StatusBadRequest {
				slog.Warn("Telegram markdown parse failed, retrying plain")
				params.Del("parse_mode")
				retryResp, retryErr := t.client.PostForm(t.baseURL+"/sendMessage", params)
				if retryErr != nil {
					return fmt.Errorf("sending Telegram message (retry): %w", retryErr)
				}
				_ = retryResp.Body.Close()
				if retryResp.StatusCode != http.StatusOK {
					return fmt.Errorf("telegram API error %d on retry", retryResp.StatusCode)
				}
				continue
			}
			return fmt.Errorf("telegram API error %d", resp.StatusCode)
		}
	}

	return nil
}

func (t *TelegramChannel) Start(ctx context.Context, handler func(InboundMessage)) error {
	go t.pollLoop(ctx, handler)
	return nil
}

func (t *TelegramChannel) Stop() error {
	close(t.stop)
	return nil
}

func (t *TelegramChannel) pollLoop(ctx context.Context, handler func(InboundMessage)) {
	slog.Info("Telegram long-polling started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		default:
			updates, err := t.getUpdates(ctx)
			if err != nil {
				slog.Error("Telegram getUpdates error", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, u := range updates {
				t.offset = u.UpdateID + 1
				msg, ok := mapTelegramInbound(u)
				if !ok {
					continue
				}
				go handler(msg)
			}
		}
	}
}

// WebhookHandler returns an http.Handler for Telegram webhook mode. Requests
// must carry the configured secret token header (when set) and a payload that
// validates against the update schema.
func (t *TelegramChannel) WebhookHandler(secret string, handler func(InboundMessage)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if secret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != secret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}

		result, err := t.updateSchema.Validate(gojsonschema.NewBytesLoader(body))
		if err != nil || !result.Valid() {
			slog.Warn("telegram webhook payload rejected", "error", err)
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}

		var u tgUpdate
		if err := json.Unmarshal(body, &u); err != nil {
			http.Error(w, "invalid update", http.StatusBadRequest)
			return
		}

		if msg, ok := mapTelegramInbound(u); ok {
			go handler(msg)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func (t *TelegramChannel) getUpdates(ctx context.Context) ([]tgUpdate, error) {
	params := url.Values{
		"offset":  {strconv.Itoa(t.offset)},
		"timeout": {"30"},
	}

	req, err := http.NewRequestWithContext(ctx, "GET", t.baseURL+"/getUpdates?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var result struct {
		OK     bool       `json:"ok"`
		Result []tgUpdate `json:"result"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}

	if !result.OK {
		return nil, fmt.Errorf("telegram API returned ok=false")
	}

	return result.Result, nil
}

// Telegram API types (minimal)
type tgUpdate struct {
	UpdateID int        `json:"update_id"`
	Message  *tgMessage `json:"message"`
}

type tgMessage struct {
	Text     string      `json:"text"`
	Caption  string      `json:"caption"`
	Document *tgDocument `json:"document,omitempty"`
	Chat     tgChat      `json:"chat"`
	From     tgUser      `json:"from"`
}

type tgDocument struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

type tgChat struct {
	ID int64 `json:"id"`
}

type tgUser struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	LanguageCode string `json:"language_code"`
}

func mapTelegramInbound(u tgUpdate) (InboundMessage, bool) {
	if u.Message == nil {
		return InboundMessage{}, false
	}

	text := strings.TrimSpace(u.Message.Text)
	caption := strings.TrimSpace(u.Message.Caption)
	if text == "" && caption != "" {
		text = caption
	}

	hasDocument := u.Message.Document != nil
	if text == "" && !hasDocument {
		return InboundMessage{}, false
	}

	msg := InboundMessage{
		Channel:     "telegram",
		UserID:      strconv.FormatInt(u.Message.Chat.ID, 10),
		ExternalID:  strconv.FormatInt(u.Message.From.ID, 10),
		Text:        text,
		Caption:     caption,
		HasDocument: hasDocument,
		Username:    u.Message.From.Username,
		FirstName:   u.Message.From.FirstName,
		LastName:    u.Message.From.LastName,
		Language:    u.Message.From.LanguageCode,
	}
	if hasDocument {
		msg.DocumentFileID = u.Message.Document.FileID
		msg.DocumentName = u.Message.Document.FileName
	}

	return msg, true
}
