// Package llm implements the outbound client to the external natural
// language interpreter: a single JSON request to a local HTTP model
// server, with first-balanced-JSON extraction from the response.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"handsfree/internal/logging"
)

// ErrorKind tags the taxonomy of interpreter failures.
type ErrorKind string

const (
	ErrUnreachable ErrorKind = "llm_unreachable"
	ErrDecode      ErrorKind = "llm_decode_error"
	ErrNoJSON      ErrorKind = "llm_no_json"
)

// Error is a taxonomy-mapped interpreter error.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Client calls a local HTTP model server with a fixed temperature, a
// timeout, and a schema-describing prompt listing the allowed intents.
type Client struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	HTTP        *http.Client
}

// NewClient constructs a Client with its own http.Client whose timeout is
// the given timeout.
func NewClient(baseURL, model string, temperature float64, timeout time.Duration) *Client {
	return &Client{
		BaseURL:     baseURL,
		Model:       model,
		Temperature: temperature,
		Timeout:     timeout,
		HTTP:        &http.Client{Timeout: timeout},
	}
}

type request struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
}

type response struct {
	Text string `json:"response"`
}

// Interpret sends text, a UI-context snapshot, and the allowed-intent set to
// the model server and returns the raw steps-payload it produced: either a
// list of step dicts or an object with a "steps" key.
func (c *Client) Interpret(ctx context.Context, text string, uiContext map[string]any, allowedIntents []string) (any, error) {
	prompt := buildPrompt(text, uiContext, allowedIntents)

	body, err := json.Marshal(request{
		Model:       c.Model,
		Prompt:      prompt,
		Temperature: c.Temperature,
		Stream:      false,
	})
	if err != nil {
		return nil, &Error{Kind: ErrDecode, Err: err}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: ErrUnreachable, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http().Do(httpReq)
	if err != nil {
		logging.LLM("interpreter unreachable: %v", err)
		return nil, &Error{Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrUnreachable, Err: err}
	}

	var env response
	text2 := string(raw)
	if json.Unmarshal(raw, &env) == nil && env.Text != "" {
		text2 = env.Text
	}

	jsonStr := ExtractJSON(text2)
	if jsonStr == "" {
		return nil, &Error{Kind: ErrNoJSON, Err: errors.New("no balanced JSON substring found")}
	}

	var payload any
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		return nil, &Error{Kind: ErrDecode, Err: err}
	}
	return payload, nil
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 10 * time.Second
	}
	return c.Timeout
}

func (c *Client) http() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: c.timeout()}
}

func buildPrompt(text string, uiContext map[string]any, allowedIntents []string) string {
	ctxJSON, _ := json.Marshal(uiContext)
	intentsJSON, _ := json.Marshal(allowedIntents)
	return fmt.Sprintf(
		"You translate a natural-language command into a JSON list of steps.\n"+
			"Allowed intents: %s\n"+
			"UI context: %s\n"+
			"Command: %s\n"+
			"Respond with only a JSON array of step objects, or {\"steps\": [...]}.",
		intentsJSON, ctxJSON, text,
	)
}
