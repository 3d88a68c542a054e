package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "nomic-embed-text" || len(req.Input) != 1 {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer srv.Close()

	p, err := New(srv.URL, "nomic-embed-text")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	vec, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Fatalf("vec = %v", vec)
	}
}

func TestEmbedBatch_LengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1}}})
	}))
	defer srv.Close()

	p, _ := New(srv.URL, "nomic-embed-text")
	if _, err := p.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestDimensions(t *testing.T) {
	p, _ := New("", "nomic-embed-text")
	if p.Dimensions() != 768 {
		t.Fatalf("dimensions = %d, want 768", p.Dimensions())
	}

	p, _ = New("", "custom-model", WithDimensions(512))
	if p.Dimensions() != 512 {
		t.Fatalf("dimensions = %d, want 512", p.Dimensions())
	}
}

func TestNew_RequiresModel(t *testing.T) {
	if _, err := New("", ""); err == nil {
		t.Fatal("expected error for empty model")
	}
}
