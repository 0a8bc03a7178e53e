package revision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// completionServer fakes the chat-completions endpoint, answering every call
// with the given message content.
func completionServer(t *testing.T, status int, content string, capture *providerRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		if capture != nil {
			_ = json.NewDecoder(r.Body).Decode(capture)
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			return
		}
		resp := providerResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message providerMessage `json:"message"`
		}{Message: providerMessage{Role: "assistant", Content: content}})
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestRevise_Success(t *testing.T) {
	var captured providerRequest
	srv := completionServer(t, http.StatusOK, `{"title":"Hello","mail":"Dear team, ..."}`, &captured)
	defer srv.Close()

	e := &OpenAIEngine{APIKey: "test-key", BaseURL: srv.URL}
	rev, err := e.Revise(context.Background(), Input{
		Title:           "hi",
		Draft:           "plz fix",
		Language:        "english",
		Recipient:       &RecipientContext{Name: "Jane", Group: "eng"},
		ExcludeKeywords: []string{"asap"},
	})
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if rev.Title != "Hello" || rev.Body != "Dear team, ..." {
		t.Fatalf("unexpected revision: %+v", rev)
	}

	if captured.Model != DefaultModel {
		t.Fatalf("model = %q, want default %q", captured.Model, DefaultModel)
	}
	if captured.ResponseFormat.Type != "json_object" {
		t.Fatalf("response_format = %q", captured.ResponseFormat.Type)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	user := captured.Messages[1].Content
	for _, want := range []string{`"language":"English"`, `"mail":"plz fix"`, `"name":"Jane"`, `"asap"`} {
		if !strings.Contains(user, want) {
			t.Fatalf("user payload missing %q: %s", want, user)
		}
	}
}

func TestRevise_FencedJSON(t *testing.T) {
	srv := completionServer(t, http.StatusOK, "```json\n{\"title\":\"T\",\"mail\":\"B\"}\n```", nil)
	defer srv.Close()

	e := &OpenAIEngine{APIKey: "test-key", BaseURL: srv.URL}
	rev, err := e.Revise(context.Background(), Input{Draft: "x"})
	if err != nil {
		t.Fatalf("revise: %v", err)
	}
	if rev.Title != "T" || rev.Body != "B" {
		t.Fatalf("unexpected revision: %+v", rev)
	}
}

func TestRevise_MissingField(t *testing.T) {
	srv := completionServer(t, http.StatusOK, `{"title":"only a title"}`, nil)
	defer srv.Close()

	e := &OpenAIEngine{APIKey: "test-key", BaseURL: srv.URL}
	if _, err := e.Revise(context.Background(), Input{Draft: "x"}); !errors.Is(err, ErrRevisionFailed) {
		t.Fatalf("expected ErrRevisionFailed, got %v", err)
	}
}

func TestRevise_ProviderError(t *testing.T) {
	srv := completionServer(t, http.StatusTooManyRequests, "", nil)
	defer srv.Close()

	e := &OpenAIEngine{APIKey: "test-key", BaseURL: srv.URL}
	if _, err := e.Revise(context.Background(), Input{Draft: "x"}); !errors.Is(err, ErrRevisionFailed) {
		t.Fatalf("expected ErrRevisionFailed, got %v", err)
	}
}

func TestRevise_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	e := &OpenAIEngine{APIKey: "test-key", BaseURL: srv.URL, Timeout: 20 * time.Millisecond}
	if _, err := e.Revise(context.Background(), Input{Draft: "x"}); !errors.Is(err, ErrRevisionFailed) {
		t.Fatalf("expected ErrRevisionFailed on timeout, got %v", err)
	}
}

func TestParseRevision_Malformed(t *testing.T) {
	if _, err := parseRevision("not json at all"); !errors.Is(err, ErrRevisionFailed) {
		t.Fatalf("expected ErrRevisionFailed, got %v", err)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "Korean"},
		{"  ", "Korean"},
		{"korean", "Korean"},
		{"ENGLISH", "English"},
		{"japanese", "Japanese"},
	}
	for _, tc := range cases {
		if got := NormalizeLanguage(tc.in); got != tc.want {
			t.Fatalf("NormalizeLanguage(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
