package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
			t.Errorf("Expected bearer auth, got %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
}

func TestChat(t *testing.T) {
	srv := testServer(t, "hello back", http.StatusOK)
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "test/model", 5*time.Second)
	reply, err := client.Chat(context.Background(), "", []Message{{Role: "user", Content: "hello"}})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if reply != "hello back" {
		t.Errorf("Expected 'hello back', got %q", reply)
	}
}

func TestChatJSONExtractsWrappedJSON(t *testing.T) {
	srv := testServer(t, "Here you go:\n```json\n{\"a\": 1}\n```", http.StatusOK)
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "test/model", 5*time.Second)
	raw, err := client.ChatJSON(context.Background(), "", []Message{{Role: "user", Content: "json please"}})
	if err != nil {
		t.Fatalf("ChatJSON failed: %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatalf("Extracted text is not valid JSON: %v (%q)", err, raw)
	}
	if parsed["a"] != float64(1) {
		t.Errorf("Unexpected parsed value: %v", parsed)
	}
}

func TestChatJSONNoJSONInReply(t *testing.T) {
	srv := testServer(t, "sorry, I cannot do that", http.StatusOK)
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "test/model", 5*time.Second)
	if _, err := client.ChatJSON(context.Background(), "", []Message{{Role: "user", Content: "json"}}); err == nil {
		t.Error("Expected error when reply contains no JSON")
	}
}

func TestChatMissingKey(t *testing.T) {
	client := NewClient("http://localhost:1", "", "test/model", time.Second)
	if _, err := client.Chat(context.Background(), "", []Message{{Role: "user", Content: "x"}}); err == nil {
		t.Error("Expected error for missing API key")
	}
}

func TestChatEmptyMessages(t *testing.T) {
	client := NewClient("http://localhost:1", "sk-test", "test/model", time.Second)
	if _, err := client.Chat(context.Background(), "", nil); err == nil {
		t.Error("Expected error for empty messages")
	}
}

func TestChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "test/model", 5*time.Second)
	if _, err := client.Chat(context.Background(), "", []Message{{Role: "user", Content: "x"}}); err == nil {
		t.Error("Expected error for non-2xx response")
	}
}

func TestChatEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "sk-test", "test/model", 5*time.Second)
	if _, err := client.Chat(context.Background(), "", []Message{{Role: "user", Content: "x"}}); err == nil {
		t.Error("Expected error for empty choices")
	}
}
