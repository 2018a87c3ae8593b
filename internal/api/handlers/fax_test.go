package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/westmount/faxbridge/internal/document"
	"github.com/westmount/faxbridge/internal/fax"
	"github.com/westmount/faxbridge/internal/hosting"
	"github.com/westmount/faxbridge/internal/submission"
	"github.com/westmount/faxbridge/pkg/scheduler"
)

type stubStatus struct {
	result *fax.StatusResult
}

func (s stubStatus) Status(_ context.Context, _ string) *fax.StatusResult {
	return s.result
}

type testAPI struct {
	handler  http.Handler
	registry *hosting.Registry
}

func newTestAPI(t *testing.T, faxStatusCode int, faxBody string, status StatusChecker) *testAPI {
	t.Helper()

	faxSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(faxStatusCode)
		w.Write([]byte(faxBody))
	}))
	t.Cleanup(faxSrv.Close)

	registry := hosting.NewRegistry()
	strategy := hosting.NewSelfHost(registry, "http://localhost:8000", nil)
	sched := scheduler.New(nil)
	t.Cleanup(sched.Stop)

	sender := fax.NewClient(fax.Config{
		APIURL:    faxSrv.URL,
		ProjectID: "proj",
		Timeout:   5 * time.Second,
	}, nil)

	pipeline := submission.New(submission.Config{
		Destination:     "17057415595",
		PipelineTimeout: 10 * time.Second,
		GracePeriod:     time.Minute,
		SaveDir:         t.TempDir(),
	}, document.NewRenderer(), strategy, sender, registry, sched, nil)

	h := NewFaxHandler(pipeline, status, registry, "17057415595", nil)
	return &testAPI{handler: h.Routes(), registry: registry}
}

func (a *testAPI) do(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestSendFaxJSON(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{"id": "fax_abc123"}`, stubStatus{})

	rec := api.do(t, http.MethodPost, "/send-fax", "application/json",
		`{"OR-Name": "John", "OR-Last-name": "Doe", "OR-Phone-number": "123-456-7890", "OR-Medication": "Aspirin"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "success" {
		t.Errorf("status field = %v, want success", body["status"])
	}
	if body["fax_id"] != "fax_abc123" {
		t.Errorf("fax_id = %v, want fax_abc123", body["fax_id"])
	}
	if body["fax_number"] != "17057415595" {
		t.Errorf("fax_number = %v, want configured destination", body["fax_number"])
	}
}

func TestSendFaxFormEncoded(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{"id": "fax_form"}`, stubStatus{})

	form := url.Values{}
	form.Set("OR-Name", "John")
	form.Set("OR-Last-name", "Doe")
	form.Set("OR-Phone-number", "123-456-7890")
	form.Set("OR-Medication", "Aspirin")

	rec := api.do(t, http.MethodPost, "/send-fax", "application/x-www-form-urlencoded", form.Encode())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestSendFaxMissingFields(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{"id": "unused"}`, stubStatus{})

	rec := api.do(t, http.MethodPost, "/send-fax", "application/json", `{"OR-Name": "John"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	missing, ok := body["missing"].([]interface{})
	if !ok {
		t.Fatalf("missing field list absent in %v", body)
	}
	want := map[string]bool{"last_name": true, "phone": true, "medication": true}
	for _, m := range missing {
		if !want[m.(string)] {
			t.Errorf("unexpected missing field %v", m)
		}
		delete(want, m.(string))
	}
	if len(want) != 0 {
		t.Errorf("fields not reported missing: %v", want)
	}
	if _, ok := body["received"]; !ok {
		t.Error("rejected payload not echoed back")
	}
}

func TestSendSignupFax(t *testing.T) {
	api := newTestAPI(t, http.StatusCreated, `{"id": "fax_signup"}`, stubStatus{})

	rec := api.do(t, http.MethodPost, "/send-signup-fax", "application/json",
		`{"Form-first-name": "Jane", "Form-last-name": "Roe", "Form-phone-number": "555-000-1111", "Form-date-of-brith": "1990-01-01"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["fax_id"] != "fax_signup" {
		t.Errorf("fax_id = %v, want fax_signup", body["fax_id"])
	}
}

func TestSendFaxProviderRejection(t *testing.T) {
	api := newTestAPI(t, http.StatusBadRequest, `{"error": "invalid destination"}`, stubStatus{})

	rec := api.do(t, http.MethodPost, "/send-fax", "application/json",
		`{"OR-Name": "John", "OR-Last-name": "Doe", "OR-Phone-number": "123-456-7890", "OR-Medication": "Aspirin"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["message"] != "PDF generated but fax failed" {
		t.Errorf("message = %v", body["message"])
	}
}

func TestGeneratePDF(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{"id": "unused"}`, stubStatus{})

	rec := api.do(t, http.MethodPost, "/generate-pdf", "application/json",
		`{"OR-Name": "John", "OR-Last-name": "Doe", "OR-Phone-number": "123-456-7890", "OR-Medication": "Aspirin"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	path, _ := body["path"].(string)
	if path == "" {
		t.Fatal("generated pdf path missing from response")
	}
	if !strings.HasSuffix(path, ".pdf") {
		t.Errorf("path = %q, want .pdf suffix", path)
	}
}

func TestSendFaxFromFileRejectsBadNumber(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{"id": "unused"}`, stubStatus{})

	rec := api.do(t, http.MethodPost, "/send-fax-from-file", "application/json",
		`{"file_path": "/tmp/whatever.pdf", "fax_number": "123"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSendFaxFromFileRequiresPath(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{"id": "unused"}`, stubStatus{})

	rec := api.do(t, http.MethodPost, "/send-fax-from-file", "application/json", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestFaxStatus(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{}`, stubStatus{result: &fax.StatusResult{
		Success: true,
		Status:  map[string]interface{}{"id": "fax_1", "status": "COMPLETED"},
	}})

	rec := api.do(t, http.MethodGet, "/fax-status/fax_1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "COMPLETED" {
		t.Errorf("provider status = %v, want COMPLETED", body["status"])
	}
}

func TestFaxStatusLookupFailure(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{}`, stubStatus{result: &fax.StatusResult{
		Success: false,
		Err:     "fax not found",
	}})

	rec := api.do(t, http.MethodGet, "/fax-status/fax_missing", "", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestServeFile(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{}`, stubStatus{})

	api.registry.Put(&document.Document{
		ID:          "doc1",
		Name:        "refill_order.pdf",
		ContentType: document.ContentTypePDF,
		Data:        []byte("%PDF-1.7 test"),
	})

	rec := api.do(t, http.MethodGet, "/files/doc1", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != document.ContentTypePDF {
		t.Errorf("content type = %q", got)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Error("response body is not the stored pdf")
	}

	api.registry.Evict("doc1")
	rec = api.do(t, http.MethodGet, "/files/doc1", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after eviction = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, http.StatusOK, `{}`, stubStatus{})

	rec := api.do(t, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" {
		t.Errorf("status = %q, want ok", health.Status)
	}
	if health.Version != Version {
		t.Errorf("version = %q, want %q", health.Version, Version)
	}
	if _, ok := health.Endpoints["send_fax"]; !ok {
		t.Error("endpoint map missing send_fax")
	}
	if _, ok := health.Endpoints["files"]; !ok {
		t.Error("endpoint map missing files while self-hosting")
	}
}
