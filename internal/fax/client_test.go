package fax

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/westmount/faxbridge/internal/hosting"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		APIURL:       srv.URL,
		AccessKey:    "test-key",
		AccessSecret: "test-secret",
		ProjectID:    "proj-1",
	}, nil)
}

func TestSubmitSuccess(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proj-1/faxes" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-key" || pass != "test-secret" {
			t.Error("missing or wrong basic auth")
		}

		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload["to"] != "17057415595" {
			t.Errorf("to = %q", payload["to"])
		}
		if payload["contentUrl"] != "https://file.io/abc" {
			t.Errorf("contentUrl = %q", payload["contentUrl"])
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "fax_abc123",
			"status": "IN_PROGRESS",
		})
	})

	result := client.Submit(context.Background(), "17057415595", &hosting.Reference{
		URL:     "https://file.io/abc",
		Service: "file.io",
	})

	if !result.Success {
		t.Fatalf("submit failed: %s", result.Err)
	}
	if result.FaxID != "fax_abc123" {
		t.Errorf("fax id = %q", result.FaxID)
	}
	if result.Destination != "17057415595" {
		t.Errorf("destination = %q", result.Destination)
	}
	if result.RawResponse["status"] != "IN_PROGRESS" {
		t.Error("raw provider payload not preserved")
	}
}

func TestSubmitProviderRejection(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid destination"}`, http.StatusBadRequest)
	})

	result := client.Submit(context.Background(), "17057415595", &hosting.Reference{URL: "https://file.io/abc"})

	if result.Success {
		t.Fatal("expected failed result")
	}
	if result.FaxID != "" {
		t.Error("failed result must not carry a fax ID")
	}
	if !strings.Contains(result.Err, "400") || !strings.Contains(result.Err, "invalid destination") {
		t.Errorf("error should describe the rejection: %q", result.Err)
	}
}

func TestSubmitNetworkFailureIsResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(Config{APIURL: srv.URL, ProjectID: "proj-1"}, nil)
	result := client.Submit(context.Background(), "17057415595", &hosting.Reference{URL: "https://file.io/abc"})

	if result.Success {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(result.Err, "network error") {
		t.Errorf("err = %q, want network error text", result.Err)
	}
}

func TestSubmitIncludesCallbackURL(t *testing.T) {
	var gotCallback string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)
		gotCallback = payload["callbackUrl"]
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "fax_1"})
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		APIURL:      srv.URL,
		ProjectID:   "proj-1",
		CallbackURL: "https://faxbridge.example.com/fax-callback",
	}, nil)

	client.Submit(context.Background(), "17057415595", &hosting.Reference{URL: "https://file.io/abc"})
	if gotCallback != "https://faxbridge.example.com/fax-callback" {
		t.Errorf("callbackUrl = %q", gotCallback)
	}
}

func TestStatusLookup(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/proj-1/faxes/fax_abc123" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "fax_abc123",
			"status": "COMPLETED",
		})
	})

	result := client.Status(context.Background(), "fax_abc123")
	if !result.Success {
		t.Fatalf("status failed: %s", result.Err)
	}
	if result.Status["status"] != "COMPLETED" {
		t.Error("status payload not surfaced verbatim")
	}
}

func TestStatusLookupFailure(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	result := client.Status(context.Background(), "fax_missing")
	if result.Success {
		t.Fatal("expected failed result")
	}
	if !strings.Contains(result.Err, "404") {
		t.Errorf("err = %q", result.Err)
	}
}

func TestValidateDestination(t *testing.T) {
	cases := []struct {
		number string
		want   bool
	}{
		{"555-123-4567", true},
		{"+17057415595", true},
		{"17057415595", true},
		{"123", false},
		{"", false},
		{"1234567", true},
		{"123456789012345", true},
		{"1234567890123456", false},
		{"abc-def-ghij", false},
	}

	for _, tc := range cases {
		if got := ValidateDestination(tc.number); got != tc.want {
			t.Errorf("ValidateDestination(%q) = %v, want %v", tc.number, got, tc.want)
		}
	}
}
