// Package revision implements the revision engine: the component that turns
// a draft and/or guidance into a polished email title and body by calling an
// external language-model provider.
//
// From the orchestration layer's point of view Revise is a pure, blocking
// function. Internally it performs exactly one chat-completion call with a
// bounded timeout and a structured-JSON response contract. Any network error,
// timeout, or non-conforming response surfaces as ErrRevisionFailed with no
// partial output; retry policy belongs to the task queue, not to this
// package.
package revision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ErrRevisionFailed is the single failure mode of the engine. Callers match
// it with errors.Is; the wrapped cause is for logs only.
var ErrRevisionFailed = errors.New("revision failed")

// RecipientContext carries the contact details used to tailor tone.
type RecipientContext struct {
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`
}

// Input is one revision request. At least one of Draft and Guide is non-empty
// (the orchestrator validates this before anything is enqueued).
type Input struct {
	Title           string
	Draft           string
	Guide           string
	Language        string
	Recipient       *RecipientContext
	ExcludeKeywords []string
}

// Revision is the structured output contract with the provider: exactly a
// title and a mail body. Anything else is a hard failure.
type Revision struct {
	Title string `json:"title"`
	Body  string `json:"mail"`
}

// Engine is the contract consumed by the background worker.
type Engine interface {
	// Revise performs one revision. It blocks until the provider answers,
	// the configured timeout elapses, or ctx is cancelled.
	Revise(ctx context.Context, in Input) (*Revision, error)
}

// systemPrompt instructs the model to act as a mail supervisor and emit the
// structured {title, mail} object. It mirrors the product behavior: create a
// title when none is given, synthesize the body from the guide when no draft
// exists, respect the recipient context and requested language, and avoid
// the caller's excluded keywords.
const systemPrompt = "You are a supervisor responsible for managing email communications. " +
	"Your goal is to proactively prevent any issues staff may encounter in emails. " +
	"Respond with a JSON object containing exactly two string fields: 'title' and 'mail'. " +
	"Revise and improve both fields based on the input's title and mail content. " +
	"If the 'recipient' field is present, consider who receives the mail while revising. " +
	"If there is no 'title' field, create a title that best matches. " +
	"If there is no 'mail' field, create mail content following the provided guide. " +
	"If a guide is provided, reflect its guidance in both the title and the mail. " +
	"Never use any of the words listed in 'exclude_keywords'. " +
	"Review both fields for inappropriate expressions and self-correct before answering. " +
	"Respond in the language specified by the input."

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// OpenAIEngine calls the OpenAI chat-completions API with a JSON response
// format. It is safe for concurrent use.
type OpenAIEngine struct {
	// APIKey authenticates against the provider.
	APIKey string
	// Model selects the chat model; DefaultModel when empty.
	Model string
	// BaseURL overrides the API host (tests point it at a local server).
	BaseURL string
	// Timeout bounds one provider call end to end.
	Timeout time.Duration
	// HTTPClient is used for the call; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// providerRequest / providerResponse model the minimal slice of the
// chat-completions wire format this engine needs.
type providerMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type providerRequest struct {
	Model          string            `json:"model"`
	Messages       []providerMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type providerResponse struct {
	Choices []struct {
		Message providerMessage `json:"message"`
	} `json:"choices"`
}

// enginePayload is the user-turn JSON handed to the model.
type enginePayload struct {
	Language        string            `json:"language"`
	Title           string            `json:"title,omitempty"`
	Mail            string            `json:"mail,omitempty"`
	Guide           string            `json:"guide,omitempty"`
	Recipient       *RecipientContext `json:"recipient,omitempty"`
	ExcludeKeywords []string          `json:"exclude_keywords,omitempty"`
}

// Revise implements Engine.
func (e *OpenAIEngine) Revise(ctx context.Context, in Input) (*Revision, error) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	userJSON, err := json.Marshal(enginePayload{
		Language:        NormalizeLanguage(in.Language),
		Title:           in.Title,
		Mail:            in.Draft,
		Guide:           in.Guide,
		Recipient:       in.Recipient,
		ExcludeKeywords: in.ExcludeKeywords,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", ErrRevisionFailed, err)
	}

	reqBody := providerRequest{
		Model: e.Model,
		Messages: []providerMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userJSON)},
		},
	}
	if reqBody.Model == "" {
		reqBody.Model = DefaultModel
	}
	reqBody.ResponseFormat.Type = "json_object"

	raw, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrRevisionFailed, err)
	}

	base := e.BaseURL
	if base == "" {
		base = "https://api.openai.com"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(base, "/")+"/v1/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRevisionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	client := e.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRevisionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRevisionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider status %d", ErrRevisionFailed, resp.StatusCode)
	}

	var pr providerResponse
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrRevisionFailed, err)
	}
	if len(pr.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrRevisionFailed)
	}

	return parseRevision(pr.Choices[0].Message.Content)
}

// parseRevision decodes the model's JSON answer into a Revision, stripping
// markdown code fences some models wrap around JSON. A response missing
// either field is a hard failure.
func parseRevision(content string) (*Revision, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)

	var rev Revision
	if err := json.Unmarshal([]byte(clean), &rev); err != nil {
		return nil, fmt.Errorf("%w: malformed completion: %v", ErrRevisionFailed, err)
	}
	if strings.TrimSpace(rev.Title) == "" || strings.TrimSpace(rev.Body) == "" {
		return nil, fmt.Errorf("%w: completion missing title or mail", ErrRevisionFailed)
	}
	return &rev, nil
}

// NormalizeLanguage canonicalizes a requested output language name
// ("korean" → "Korean"). An empty value defaults to Korean, the product's
// original audience.
func NormalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return "Korean"
	}
	return cases.Title(language.English).String(strings.ToLower(lang))
}
