package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jmehdipour/visa-crm/internal/config"
	"github.com/jmehdipour/visa-crm/internal/model"
	"github.com/jmehdipour/visa-crm/internal/util"
)

const (
	defaultSendPath = "/api/sendText"
	defaultTimeout  = 30 * time.Second

	// individual chat (groups use @g.us)
	chatSuffix = "@c.us"

	maxBodyInStatus = 200
)

// Result is the classified outcome of one send.
type Result struct {
	Outcome    model.Outcome // sent | failed
	Status     string        // human-readable, stored in send_logs.status
	StatusCode int           // 0 on transport errors
}

func (r Result) OK() bool { return r.Outcome == model.OutcomeSent }

type sendTextReq struct {
	ChatID  string `json:"chatId"`
	Text    string `json:"text"`
	Session string `json:"session"`
}

// Client delivers WhatsApp text messages through a WAHA instance.
type Client struct {
	baseURL  string
	sendPath string
	apiKey   string
	session  string
	client   *http.Client
	log      *zap.Logger
}

func NewClient(cfg config.GatewayConfig, httpClient *http.Client, log *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	path := cfg.SendPath
	if path == "" {
		path = defaultSendPath
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		sendPath: path,
		apiKey:   strings.TrimSpace(cfg.APIKey),
		session:  cfg.Session,
		client:   httpClient,
		log:      log,
	}
}

// ChatID builds the WAHA destination for an individual chat.
func ChatID(phone string) string {
	return util.StripDialSymbols(phone) + chatSuffix
}

// SendText posts one message and classifies the response. It never retries.
func (c *Client) SendText(ctx context.Context, phone, text string) Result {
	b, err := json.Marshal(sendTextReq{ChatID: ChatID(phone), Text: text, Session: c.session})
	if err != nil {
		return c.transportFailure(phone, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.sendPath, bytes.NewReader(b))
	if err != nil {
		return c.transportFailure(phone, err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return c.transportFailure(phone, err)
	}

	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		_, _ = io.Copy(io.Discard, res.Body)
		c.log.Info("message sent", zap.String("phone", phone))
		return Result{Outcome: model.OutcomeSent, Status: "sent", StatusCode: res.StatusCode}
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
	status := fmt.Sprintf("failed: gateway error: %d - %s", res.StatusCode, sanitize(string(body)))
	c.log.Error("gateway rejected message",
		zap.String("phone", phone),
		zap.Int("status_code", res.StatusCode),
		zap.String("status", status),
	)

	return Result{Outcome: model.OutcomeFailed, Status: status, StatusCode: res.StatusCode}
}

func (c *Client) transportFailure(phone string, err error) Result {
	c.log.Error("gateway request failed", zap.String("phone", phone), zap.Error(err))
	return Result{Outcome: model.OutcomeFailed, Status: "error: gateway request: " + err.Error()}
}

// sanitize collapses whitespace and truncates a response body for the log table.
func sanitize(body string) string {
	s := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(s) <= maxBodyInStatus {
		return s
	}
	r := []rune(s)
	return string(r[:maxBodyInStatus]) + "..."
}
