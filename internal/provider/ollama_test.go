package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"contextengine/internal/apperr"
)

func TestOllamaEmbeddingProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	p := NewOllamaEmbeddingProvider(srv.URL, "nomic-embed-text", 3)
	vec, err := p.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("len(vec) = %d, want 3", len(vec))
	}
}

func TestOllamaEmbeddingProvider_Embed_WrongDimIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.1, 0.2}})
	}))
	defer srv.Close()

	p := NewOllamaEmbeddingProvider(srv.URL, "nomic-embed-text", 3)
	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, apperr.ErrEmbeddingPermanent) {
		t.Errorf("Embed() error = %v, want apperr.ErrEmbeddingPermanent", err)
	}
}

func TestOllamaEmbeddingProvider_Embed_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaEmbeddingProvider(srv.URL, "nomic-embed-text", 3)
	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, apperr.ErrEmbeddingTransient) {
		t.Errorf("Embed() error = %v, want apperr.ErrEmbeddingTransient", err)
	}
}

func TestOllamaEmbeddingProvider_Embed_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewOllamaEmbeddingProvider(srv.URL, "nomic-embed-text", 3)
	_, err := p.Embed(context.Background(), "hello")
	if !errors.Is(err, apperr.ErrEmbeddingPermanent) {
		t.Errorf("Embed() error = %v, want apperr.ErrEmbeddingPermanent", err)
	}
}

func TestOllamaEmbeddingProvider_ModelID(t *testing.T) {
	p := NewOllamaEmbeddingProvider("http://localhost:11434", "nomic-embed-text", 768)
	if p.ModelID() != "nomic-embed-text" {
		t.Errorf("ModelID() = %q, want %q", p.ModelID(), "nomic-embed-text")
	}
	if p.Dim() != 768 {
		t.Errorf("Dim() = %d, want 768", p.Dim())
	}
}

func TestWaitForDaemon_AlreadyReady(t *testing.T) {
	err := WaitForDaemon(context.Background(), "http://x", func(context.Context) bool { return true })
	if err != nil {
		t.Fatalf("WaitForDaemon() error = %v", err)
	}
}

func TestWaitForDaemon_TimesOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WaitForDaemon(ctx, "http://x", func(context.Context) bool { return false })
	if !errors.Is(err, apperr.ErrTimeout) {
		t.Errorf("WaitForDaemon() error = %v, want apperr.ErrTimeout", err)
	}
}
