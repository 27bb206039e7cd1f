package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

const historyLimit = 12

// ChatAdvisor asks an OpenAI-compatible chat-completions endpoint (DeepSeek
// by default) for a single poker decision. Every failure mode maps to
// ErrUnavailable so the caller has exactly one fallback path.
type ChatAdvisor struct {
	url     string
	model   string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	clock   quartz.Clock
	logger  *log.Logger
}

// ChatOption configures a ChatAdvisor
type ChatOption func(*ChatAdvisor)

// WithClock supplies a clock for deadline control in tests
func WithClock(clock quartz.Clock) ChatOption {
	return func(a *ChatAdvisor) { a.clock = clock }
}

// WithHTTPClient supplies a custom HTTP client
func WithHTTPClient(client *http.Client) ChatOption {
	return func(a *ChatAdvisor) { a.client = client }
}

// NewChatAdvisor creates an advisor against the given chat-completions URL
func NewChatAdvisor(url, model, apiKey string, timeout time.Duration, logger *log.Logger, opts ...ChatOption) *ChatAdvisor {
	a := &ChatAdvisor{
		url:     url,
		model:   model,
		apiKey:  apiKey,
		timeout: timeout,
		client:  &http.Client{},
		clock:   quartz.NewReal(),
		logger:  logger.WithPrefix("policy"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Advise implements Advisor. The call is bounded by the advisor's timeout;
// expiry is reported as ErrUnavailable like any other transport failure.
func (a *ChatAdvisor) Advise(ctx context.Context, view View) (Decision, error) {
	if a.apiKey == "" {
		return Decision{}, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	timer := a.clock.AfterFunc(a.timeout, cancel)
	defer timer.Stop()

	body, err := json.Marshal(chatRequest{
		Model:       a.model,
		Messages:    a.buildMessages(view),
		Temperature: 0.2,
	})
	if err != nil {
		return Decision{}, fmt.Errorf("%w: marshal request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return Decision{}, fmt.Errorf("%w: create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Decision{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	// Cap the body read to guard against pathological responses
	limited := io.LimitReader(resp.Body, 1<<20)
	var parsed chatResponse
	if err := json.NewDecoder(limited).Decode(&parsed); err != nil {
		return Decision{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return Decision{}, fmt.Errorf("%w: empty choices", ErrUnavailable)
	}

	decision, err := parseDecision(parsed.Choices[0].Message.Content)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	a.logger.Debug("provider decision",
		"player", view.PlayerName,
		"action", decision.Action,
		"amount", decision.Amount)
	return decision, nil
}

func (a *ChatAdvisor) buildMessages(view View) []chatMessage {
	history := view.History
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	var lines []string
	for _, item := range history {
		lines = append(lines, fmt.Sprintf("- %s -> %s (%d) during %s",
			item.PlayerName, item.Action, item.Amount, item.Phase))
	}
	historyText := strings.Join(lines, "\n")
	if historyText == "" {
		historyText = "No actions yet."
	}

	board := strings.Join(view.Community, ", ")
	if board == "" {
		board = "None"
	}
	cards := strings.Join(view.HoleCards, ", ")
	if cards == "" {
		cards = "Unknown"
	}

	prompt := fmt.Sprintf(
		"You control a single seat in a No-Limit Texas Hold'em poker game. "+
			"Always return a single JSON object with fields action, amount, and explanation. "+
			"Allowed actions: fold, check, call, bet, raise. "+
			"For bet/raise set amount to the FINAL total bet size (chips in front of you after the action).\n"+
			"Community cards: %s\n"+
			"Your hole cards: %s\n"+
			"Current pot: %d | Stack: %d | To call: %d | Min raise: %d\n"+
			"Current phase: %s\n"+
			"Action history:\n%s\n"+
			"Legal actions right now: %s\n"+
			`Only output JSON like {"action":"call","amount":0,"explanation":"reason"}.`,
		board, cards, view.Pot, view.Stack, view.ToCall, view.MinRaise,
		view.Phase, historyText, strings.Join(view.LegalActions, ", "))

	return []chatMessage{
		{Role: "system", Content: "You are a disciplined poker assistant. Always obey the betting rules."},
		{Role: "user", Content: prompt},
	}
}

// parseDecision extracts the first JSON object from the model's reply.
// Providers wrap the object in prose often enough that we scan for braces
// rather than decoding the content directly.
func parseDecision(content string) (Decision, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end < start {
		return Decision{}, fmt.Errorf("no JSON object in response")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(content[start:end+1]), &decision); err != nil {
		return Decision{}, fmt.Errorf("malformed decision: %v", err)
	}
	decision.Action = strings.ToLower(decision.Action)
	return decision, nil
}
