package classify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"parafile/internal/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]catalog.Category{
			{Name: "Invoices", Description: "Bills and invoices", NamingPattern: "{vendor} - {date}"},
		},
		[]catalog.Variable{
			{Name: "vendor", Description: "Issuing company"},
			{Name: "date", Description: "Document date"},
		},
	)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return cat
}

func completionResponse(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{
					"content": content,
				},
			},
		},
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewEncoder(w).Encode(completionResponse(`{"ok":true}`)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestClassifyParsesCategoryAndVariables(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"category":"Invoices","variables":{"vendor":"Acme","date":"2026-01-15"}}`
		if err := json.NewEncoder(w).Encode(completionResponse(content)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	result, err := client.Classify(context.Background(), "Invoice from Acme dated 2026-01-15", testCatalog(t))
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Category != "Invoices" {
		t.Fatalf("expected category Invoices, got %q", result.Category)
	}
	if result.Variables["vendor"] != "Acme" || result.Variables["date"] != "2026-01-15" {
		t.Fatalf("unexpected variables: %#v", result.Variables)
	}
}

func TestClassifyCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := "```json\n{\"category\":\"Invoices\",\"variables\":{\"vendor\":\"Acme\"}}\n```"
		if err := json.NewEncoder(w).Encode(completionResponse(content)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	result, err := client.Classify(context.Background(), "Invoice from Acme", testCatalog(t))
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Category != "Invoices" || result.Variables["vendor"] != "Acme" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestClassifyUndeclaredCategoryFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content := `{"category":"Taxes","variables":{"vendor":"Acme","account":"42"}}`
		if err := json.NewEncoder(w).Encode(completionResponse(content)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	result, err := client.Classify(context.Background(), "Some document", testCatalog(t))
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if result.Category != catalog.GeneralCategory {
		t.Fatalf("expected fallback category, got %q", result.Category)
	}
	if _, ok := result.Variables["account"]; ok {
		t.Fatal("undeclared variable should be dropped")
	}
	if result.Variables["vendor"] != "Acme" {
		t.Fatalf("declared variable should be kept: %#v", result.Variables)
	}
}

func TestClassifyRetriesOnServerError(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		content := `{"category":"Invoices","variables":{}}`
		if err := json.NewEncoder(w).Encode(completionResponse(content)); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(time.Millisecond, 5*time.Millisecond),
		WithSleeper(func(time.Duration) {}),
	)
	result, err := client.Classify(context.Background(), "Invoice", testCatalog(t))
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
	if result.Category != "Invoices" {
		t.Fatalf("unexpected category %q", result.Category)
	}
	if result.Attempts != 2 {
		t.Fatalf("expected 2 attempts reported, got %d", result.Attempts)
	}
}

func TestClassifyDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(time.Duration) {}),
	)
	result, err := client.Classify(context.Background(), "Invoice", testCatalog(t))
	if err == nil {
		t.Fatal("expected client error to surface")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single attempt, got %d", calls.Load())
	}
	if result.Attempts != 1 {
		t.Fatalf("expected 1 attempt reported, got %d", result.Attempts)
	}
}

func TestDecodeModelJSONEmbeddedObject(t *testing.T) {
	var target struct {
		Category string `json:"category"`
	}
	payload := "Here is the result: {\"category\":\"Invoices\"} as requested."
	if err := DecodeModelJSON(payload, &target); err != nil {
		t.Fatalf("DecodeModelJSON returned error: %v", err)
	}
	if target.Category != "Invoices" {
		t.Fatalf("unexpected category %q", target.Category)
	}
}
