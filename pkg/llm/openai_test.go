package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenAICompleteSuccess(t *testing.T) {
	var gotPath, gotAuth string
	var gotReq openAIRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotReq)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"topics\":[]}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{APIURL: srv.URL, APIKey: "sk-test", Model: "gpt-4o-mini"})
	out, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"topics":[]}` {
		t.Fatalf("unexpected content: %s", out)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("expected /chat/completions, got %s", gotPath)
	}
	if gotAuth != "Bearer sk-test" {
		t.Fatalf("expected bearer auth, got %q", gotAuth)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Fatal("expected json_object response format")
	}
}

func TestOpenAICompleteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Config{APIURL: srv.URL, Model: "gpt-4o-mini"})
	if _, err := p.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Fatal("expected error on 429")
	}
}

func TestOpenAICompleteRequiresModel(t *testing.T) {
	p := NewOpenAIProvider(Config{})
	if _, err := p.Complete(context.Background(), nil); err == nil {
		t.Fatal("expected error without model")
	}
}

func TestNewProviderDispatch(t *testing.T) {
	if _, err := NewProvider(Config{Provider: "openai", Model: "m"}); err != nil {
		t.Fatalf("openai: %v", err)
	}
	if _, err := NewProvider(Config{Provider: "anthropic", Model: "m"}); err != nil {
		t.Fatalf("anthropic: %v", err)
	}
	if _, err := NewProvider(Config{Provider: "bard"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
