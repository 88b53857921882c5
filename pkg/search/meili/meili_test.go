package meili

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OFFIS-RIT/companynet/pkg/search"
)

type capturedRequest struct {
	Path   string
	Auth   string
	CType  string
	Method string
	Body   map[string]any
}

func newTestServer(t *testing.T, status int, body string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			raw, _ := io.ReadAll(r.Body)
			captured.Path = r.URL.Path
			captured.Auth = r.Header.Get("Authorization")
			captured.CType = r.Header.Get("Content-Type")
			captured.Method = r.Method
			captured.Body = map[string]any{}
			_ = json.Unmarshal(raw, &captured.Body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	c, err := NewClient(NewClientParams{
		BaseURL:      baseURL,
		APIKey:       "secret",
		Timeout:      5 * time.Second,
		MaxRetries:   retries,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative/only"} {
		if _, err := NewClient(NewClientParams{BaseURL: raw}); err == nil {
			t.Fatalf("expected error for base url %q", raw)
		}
	}
}

func TestSearchText_RequestShape(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"hits":[{"cnpj":"1"},{"cnpj":"2"}]}`, &captured)
	c := newTestClient(t, srv.URL, 1)

	records, err := c.SearchText(context.Background(), "companies", "MBRAS", 10)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(records) != 2 || records[1].String("cnpj") != "2" {
		t.Fatalf("unexpected records: %d", len(records))
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("expected POST, got %s", captured.Method)
	}
	if captured.Path != "/indexes/companies/search" {
		t.Fatalf("unexpected path %q", captured.Path)
	}
	if captured.Auth != "Bearer secret" {
		t.Fatalf("unexpected auth header %q", captured.Auth)
	}
	if captured.CType != "application/json" {
		t.Fatalf("unexpected content type %q", captured.CType)
	}
	want := map[string]any{"q": "MBRAS", "limit": float64(10)}
	if !reflect.DeepEqual(captured.Body, want) {
		t.Fatalf("unexpected body %v, want %v", captured.Body, want)
	}
}

func TestSearchFilter_RequestShape(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"hits":[]}`, &captured)
	c := newTestClient(t, srv.URL, 1)

	records, err := c.SearchFilter(context.Background(), "companies", `cnpj = "123"`, 1)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
	want := map[string]any{"filter": `cnpj = "123"`, "limit": float64(1)}
	if !reflect.DeepEqual(captured.Body, want) {
		t.Fatalf("unexpected body %v, want %v", captured.Body, want)
	}
}

func TestSearchFields_RequestShape(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, http.StatusOK, `{"hits":[]}`, &captured)
	c := newTestClient(t, srv.URL, 1)

	_, err := c.SearchFields(context.Background(), "companies", "12345678900", 50, []string{"socios_cpfs"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	want := map[string]any{
		"q":                    "12345678900",
		"limit":                float64(50),
		"attributesToSearchOn": []any{"socios_cpfs"},
	}
	if !reflect.DeepEqual(captured.Body, want) {
		t.Fatalf("unexpected body %v, want %v", captured.Body, want)
	}
}

func TestSearch_BadStatus(t *testing.T) {
	srv := newTestServer(t, http.StatusUnauthorized, `{"message":"invalid key"}`, nil)
	c := newTestClient(t, srv.URL, 1)

	_, err := c.SearchText(context.Background(), "companies", "x", 10)
	if !errors.Is(err, search.ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
}

func TestSearch_UnparseablePayload(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `<html>oops</html>`, nil)
	c := newTestClient(t, srv.URL, 1)

	_, err := c.SearchText(context.Background(), "companies", "x", 10)
	if !errors.Is(err, search.ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestSearch_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"hits":[{"cnpj":"A"}]}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, 3)
	records, err := c.SearchText(context.Background(), "companies", "x", 10)
	if err != nil {
		t.Fatalf("expected nil error after retries, got %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	c := newTestClient(t, "http://localhost:7700", 1)
	if _, err := c.SearchText(context.Background(), "", "x", 10); err == nil {
		t.Fatal("expected error for empty index")
	}
}

func TestSearch_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid filter"}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, 3)
	_, err := c.SearchFilter(context.Background(), "companies", `cnpj = `, 1)
	if !errors.Is(err, search.ErrBadStatus) {
		t.Fatalf("expected ErrBadStatus, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestSearch_ResponseTooLarge(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"hits":[{"cnpj":"A"},{"cnpj":"B"}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(NewClientParams{
		BaseURL:          srv.URL,
		MaxRetries:       3,
		RetryBackoff:     time.Millisecond,
		MaxResponseBytes: 16,
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.SearchText(context.Background(), "companies", "x", 10)
	if !errors.Is(err, search.ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if errors.Is(err, search.ErrDecode) {
		t.Fatalf("oversized response must not be reported as a decode error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}
