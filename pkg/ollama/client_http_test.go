package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/clipmarket/pkg/ollama"
)

func newFake(t *testing.T, h http.HandlerFunc) (*httptest.Server, *ollama.Client) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client, err := ollama.NewClient(ollama.Config{BaseURL: srv.URL, Timeout: 2 * time.Second, Retries: 0}, srv.Client())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return srv, client
}

func TestClient_ListModelsAndHealth_Success(t *testing.T) {
	_, client := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/api/tags" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[{"name":"llama3:8b","model":"llama3:8b"}]}`))
			return
		}
		http.NotFound(w, r)
	})

	ctx := context.Background()
	models, err := client.ListModels(ctx)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 1 || models[0] != "llama3:8b" {
		t.Fatalf("unexpected models: %#v", models)
	}

	if err := client.Health(ctx); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
}

func TestClient_Health_NoModels_Fails(t *testing.T) {
	_, client := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"models":[]}`))
			return
		}
		http.NotFound(w, r)
	})

	if err := client.Health(context.Background()); err == nil {
		t.Fatalf("expected Health to fail when no models are installed")
	}
}

func TestClient_Generate_Streaming_Concatenates(t *testing.T) {
	_, client := newFake(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		writeSequence(w, []map[string]any{
			{"response": `{"score": 12,`, "done": false},
			{"response": ` "reason": "ok"}`, "done": true},
		}, 5*time.Millisecond)
	})

	res, err := client.Generate(context.Background(), "test-model", "prompt")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if res.Text != `{"score": 12, "reason": "ok"}` {
		t.Fatalf("unexpected Generate.Text: %q", res.Text)
	}

	var last map[string]any
	if err := json.Unmarshal(res.Raw, &last); err != nil {
		t.Fatalf("raw is not JSON: %v", err)
	}
	if last["done"] != true {
		t.Fatalf("expected raw to be the final chunk, got %s", res.Raw)
	}
	if res.Meta["model"] != "test-model" {
		t.Fatalf("unexpected meta: %#v", res.Meta)
	}
}

func TestClient_Generate_Failures(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"non-200", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "server error", http.StatusInternalServerError)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/x-ndjson")
			_, _ = w.Write([]byte(`{ this is : not json `))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, client := newFake(t, tc.h)
			_, err := client.Generate(context.Background(), "test-model", "prompt")
			if err == nil {
				t.Fatalf("expected Generate to fail")
			}
			if !strings.Contains(err.Error(), "after retries") {
				t.Fatalf("expected wrapped retry error, got %v", err)
			}
		})
	}
}
