package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeProvider is a scriptable Provider for router tests.
type fakeProvider struct {
	name    string
	content string
	err     error
	calls   int
}

func (f *fakeProvider) Name() string     { return f.name }
func (f *fakeProvider) Models() []string { return []string{"fake-model"} }
func (f *fakeProvider) Ping(ctx context.Context) error {
	return f.err
}
func (f *fakeProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Content: f.content, Provider: f.name, Model: "fake-model"}, nil
}

func TestRouterPrimarySucceeds(t *testing.T) {
	primary := &fakeProvider{name: "openai", content: "primary output"}
	fallback := &fakeProvider{name: "gemini", content: "fallback output"}

	r := NewRouter("openai", WithFallbacks("gemini"), WithMaxRetries(0))
	r.RegisterProvider(primary)
	r.RegisterProvider(fallback)

	resp, err := r.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Content != "primary output" {
		t.Errorf("Content = %q, want primary output", resp.Content)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestRouterFallsBackOnFailure(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: errors.New("upstream down")}
	fallback := &fakeProvider{name: "gemini", content: "fallback output"}

	r := NewRouter("openai", WithFallbacks("gemini"), WithMaxRetries(0), WithRetryDelay(time.Millisecond))
	r.RegisterProvider(primary)
	r.RegisterProvider(fallback)

	resp, err := r.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}
	if resp.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", resp.Provider)
	}
	if primary.calls == 0 {
		t.Error("primary was never attempted")
	}
}

func TestRouterAllProvidersFail(t *testing.T) {
	r := NewRouter("openai", WithFallbacks("gemini"), WithMaxRetries(0), WithRetryDelay(time.Millisecond))
	r.RegisterProvider(&fakeProvider{name: "openai", err: errors.New("down")})
	r.RegisterProvider(&fakeProvider{name: "gemini", err: errors.New("also down")})

	_, err := r.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}
}

func TestRouterDoesNotFallBackOnAuthError(t *testing.T) {
	primary := &fakeProvider{name: "openai", err: ErrNoAPIKey}
	fallback := &fakeProvider{name: "gemini", content: "should not run"}

	r := NewRouter("openai", WithFallbacks("gemini"), WithMaxRetries(0))
	r.RegisterProvider(primary)
	r.RegisterProvider(fallback)

	_, err := r.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if err == nil {
		t.Fatal("expected auth error to surface")
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times on non-retryable error, want 0", fallback.calls)
	}
}

func TestOpenAIChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"model": "gpt-4o",
			"choices": [{"index":0,"message":{"role":"assistant","content":"AAPL shares rose."},"finish_reason":"stop"}],
			"usage": {"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}
		}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("test-key", WithOpenAIBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Chat(context.Background(), []Message{
		SystemMessage("You are a newswriter."),
		UserMessage("Write about AAPL."),
	}, &ChatOptions{Temperature: 0.4, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}

	if resp.Content != "AAPL shares rose." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}
	if resp.Provider != ProviderOpenAI {
		t.Errorf("Provider = %q", resp.Provider)
	}
}

func TestOpenAIEmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"model":"gpt-4o","choices":[{"message":{"role":"assistant","content":"  "}}]}`))
	}))
	defer srv.Close()

	p, _ := NewOpenAIProvider("test-key", WithOpenAIBaseURL(srv.URL))
	_, err := p.Chat(context.Background(), []Message{UserMessage("hi")}, nil)
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("err = %v, want ErrEmptyContent", err)
	}
}

func TestGeminiChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key = %q", r.URL.Query().Get("key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content":{"role":"model","parts":[{"text":"TSLA shares fell."}]},"finishReason":"STOP"}],
			"usageMetadata": {"promptTokenCount":8,"candidatesTokenCount":4,"totalTokenCount":12}
		}`))
	}))
	defer srv.Close()

	p, err := NewGeminiProvider("test-key", WithGeminiBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	resp, err := p.Chat(context.Background(), []Message{
		SystemMessage("You are a newswriter."),
		UserMessage("Write about TSLA."),
	}, nil)
	if err != nil {
		t.Fatalf("Chat() error: %v", err)
	}

	if resp.Content != "TSLA shares fell." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 12 {
		t.Errorf("TotalTokens = %d, want 12", resp.Usage.TotalTokens)
	}
}

func TestNewProviderRequiresKey(t *testing.T) {
	if _, err := NewOpenAIProvider(""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewOpenAIProvider(\"\") err = %v, want ErrNoAPIKey", err)
	}
	if _, err := NewGeminiProvider(""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewGeminiProvider(\"\") err = %v, want ErrNoAPIKey", err)
	}
}
