package translator

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func TestTranslateValidation(t *testing.T) {
	img := []byte{0x89, 0x50, 0x4E, 0x47}

	config = nil
	if _, err := Translate(img, "prompt"); err == nil {
		t.Error("Expected error when not initialized")
	}

	Init(&Config{APIKey: "", Model: "test_model"})
	if _, err := Translate(img, "prompt"); err == nil {
		t.Error("Expected error with missing API key")
	}

	Init(&Config{APIKey: "test_key", Model: ""})
	if _, err := Translate(img, "prompt"); err == nil {
		t.Error("Expected error with missing model")
	}

	Init(&Config{APIKey: "test_key", Model: "test_model"})
	if _, err := Translate(nil, "prompt"); err == nil {
		t.Error("Expected error with empty image")
	}
	if _, err := Translate(img, ""); err == nil {
		t.Error("Expected error with empty prompt")
	}
}

func TestTranslateSendsPromptVerbatim(t *testing.T) {
	promptText := "  Translate into French.\n\nKeep tables.\n"
	img := []byte{0x01, 0x02, 0x03}

	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test_key" {
			t.Errorf("Expected bearer auth, got %q", got)
		}

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("Failed to decode request: %v", err)
		}
		if len(req.Messages) != 1 || len(req.Messages[0].Content) != 2 {
			t.Fatalf("Unexpected message shape: %+v", req.Messages)
		}
		if req.Messages[0].Content[0].Text != promptText {
			t.Errorf("Prompt was not sent verbatim: %q", req.Messages[0].Content[0].Text)
		}
		wantURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
		if req.Messages[0].Content[1].ImageURL == nil || req.Messages[0].Content[1].ImageURL.URL != wantURL {
			t.Error("Image data URL missing or wrong")
		}
		if req.Model != "test_model" {
			t.Errorf("Expected model test_model, got %q", req.Model)
		}

		json.NewEncoder(w).Encode(ChatResponse{
			Choices: []Choice{{Message: ResponseMessage{Content: "Olá mundo"}}},
		})
	}))
	defer srv.Close()

	Init(&Config{APIKey: "test_key", Model: "test_model", BaseURL: srv.URL})

	text, err := Translate(img, promptText)
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if text != "Olá mundo" {
		t.Errorf("Expected translated text, got %q", text)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("Expected exactly one outbound request, got %d", n)
	}
}

func TestTranslateDoesNotRetryOnFailure(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ChatResponse{
			Error: &APIError{Message: "boom", Type: "server_error", Code: 500},
		})
	}))
	defer srv.Close()

	Init(&Config{APIKey: "test_key", Model: "test_model", BaseURL: srv.URL})

	_, err := Translate([]byte{0x01}, "prompt")
	if err == nil {
		t.Fatal("Expected error from failing API")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected API error message to surface, got %v", err)
	}
	if n := atomic.LoadInt32(&requests); n != 1 {
		t.Errorf("Expected a single attempt (no retries), got %d requests", n)
	}
}

func TestTranslateEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{})
	}))
	defer srv.Close()

	Init(&Config{APIKey: "test_key", Model: "test_model", BaseURL: srv.URL})

	if _, err := Translate([]byte{0x01}, "prompt"); err == nil {
		t.Error("Expected error for response without choices")
	}
}

func TestPing(t *testing.T) {
	config = nil
	if err := Ping(); err == nil {
		t.Error("Expected error when not initialized")
	}

	status := int32(http.StatusOK)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("Expected /models, got %s", r.URL.Path)
		}
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	defer srv.Close()

	Init(&Config{APIKey: "test_key", Model: "test_model", BaseURL: srv.URL})
	if err := Ping(); err != nil {
		t.Errorf("Expected ping to succeed, got %v", err)
	}

	atomic.StoreInt32(&status, http.StatusUnauthorized)
	err := Ping()
	if err == nil {
		t.Fatal("Expected error for rejected key")
	}
	if !strings.Contains(err.Error(), "rejected") {
		t.Errorf("Expected rejection message, got %v", err)
	}
}
