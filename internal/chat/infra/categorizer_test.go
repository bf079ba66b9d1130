package infra

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	chatdomain "github.com/boddenberg/finbuddy-assistant-go/internal/chat/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
	"github.com/boddenberg/finbuddy-assistant-go/internal/infra/resilience"
)

func TestCategorizerClient_Categorize(t *testing.T) {
	var got chatdomain.PredictRequest
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"data":["Groceries"],"duration":0.2}`))
	}))
	defer srv.Close()

	c := NewCategorizerClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("cat-test", nil), resilience.Config{})
	label, err := c.Categorize(context.Background(), "Transaction: 'bigbasket'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "Groceries" {
		t.Errorf("expected Groceries, got %q", label)
	}
	if gotPath != "/run/predict" {
		t.Errorf("unexpected path %s", gotPath)
	}
	if len(got.Data) != 1 || got.Data[0] != "Transaction: 'bigbasket'" {
		t.Errorf("unexpected payload %+v", got)
	}
}

func TestCategorizerClient_NonStringData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[42]}`))
	}))
	defer srv.Close()

	c := NewCategorizerClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("cat-test", nil), resilience.Config{})
	_, err := c.Categorize(context.Background(), "x")

	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestCategorizerClient_ClientErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	cfg := resilience.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}
	c := NewCategorizerClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("cat-test", nil), cfg)
	if _, err := c.Categorize(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestCategorizerClient_ServerErrorRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"data":["Transport"]}`))
	}))
	defer srv.Close()

	cfg := resilience.Config{MaxRetries: 2, InitialBackoff: time.Millisecond}
	c := NewCategorizerClient(srv.Client(), srv.URL, resilience.NewCircuitBreaker("cat-test", nil), cfg)
	label, err := c.Categorize(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if label != "Transport" || calls != 2 {
		t.Errorf("expected Transport after 2 calls, got %q after %d", label, calls)
	}
}

func TestDisabledCategorizer(t *testing.T) {
	_, err := DisabledCategorizer{}.Categorize(context.Background(), "uber ride")
	if !domain.IsExternal(err) || !errors.Is(err, ErrNoCategorizer) {
		t.Fatalf("expected external ErrNoCategorizer, got %v", err)
	}
}
