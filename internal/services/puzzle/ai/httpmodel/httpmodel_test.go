package httpmodel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dailystump/stumpd/internal/services/puzzle/domain"
)

func TestClientGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["category"] != "math" {
			t.Errorf("expected category math, got %v", req["category"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"question":    "2+2?",
			"solution":    "4",
			"interaction": "text",
		})
	}))
	defer server.Close()

	client, err := New("model-a", server.URL, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	candidate, err := client.Generate(context.Background(), domain.CategoryMath, 0.5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if candidate.Question != "2+2?" || candidate.Solution != "4" {
		t.Fatalf("unexpected candidate %+v", candidate)
	}
	if candidate.Interaction != domain.InteractionText {
		t.Fatalf("expected text interaction, got %q", candidate.Interaction)
	}
}

func TestClientSolve(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/solve" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"answer": "4"})
	}))
	defer server.Close()

	client, err := New("model-a", server.URL, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	answer, err := client.Solve(context.Background(), "2+2?", domain.InteractionText)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if answer != "4" {
		t.Fatalf("expected answer 4, got %q", answer)
	}
}

func TestClientSolveNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := New("model-a", server.URL, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := client.Solve(context.Background(), "2+2?", domain.InteractionText); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestNewRejectsMissingEndpoint(t *testing.T) {
	if _, err := New("model-a", "  ", nil); err == nil {
		t.Fatal("expected error for blank endpoint")
	}
}
