package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/simplepos/pos-backend/internal/api"
	"github.com/simplepos/pos-backend/internal/api/httpx"
	"github.com/simplepos/pos-backend/internal/config"
	"github.com/simplepos/pos-backend/internal/models"
	"github.com/simplepos/pos-backend/internal/services"
	"github.com/simplepos/pos-backend/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st := store.NewFileStore(filepath.Join(t.TempDir(), "db.json"))
	seed := models.Dataset{
		Merchant:     json.RawMessage(`{"id":"m-0001","name":"Corner Shop","currency":"GBP"}`),
		Transactions: []models.Transaction{},
	}
	if err := st.Save(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := services.NewPaymentService(st, nil, nil)
	cfg := config.Config{Env: "test", RateRPS: 1000}
	return api.NewRouter(cfg, svc)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeTxn(t *testing.T, rec *httptest.ResponseRecorder) models.Transaction {
	t.Helper()
	var tx models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &tx); err != nil {
		t.Fatalf("decode transaction: %v (%s)", err, rec.Body.String())
	}
	return tx
}

func TestMerchantEndpointReturnsDocumentVerbatim(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/api/merchant", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"id":"m-0001","name":"Corner Shop","currency":"GBP"}` {
		t.Fatalf("merchant body = %s", got)
	}
}

func TestPaymentFlow(t *testing.T) {
	h := newTestRouter(t)

	// valid qr payment
	rec := do(t, h, http.MethodPost, "/api/payments", map[string]any{
		"amount": 10, "payment_method": "qr",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create: status = %d body = %s", rec.Code, rec.Body.String())
	}
	first := decodeTxn(t, rec)
	if first.Status != models.TxnSuccess || first.Reference != "TXN-00001" {
		t.Fatalf("first payment: status=%s reference=%s", first.Status, first.Reference)
	}

	// over the limit: recorded as failed, still a 200
	rec = do(t, h, http.MethodPost, "/api/payments", map[string]any{
		"amount": 6000, "payment_method": "debit-card",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("declined create: status = %d", rec.Code)
	}
	declined := decodeTxn(t, rec)
	if declined.Status != models.TxnFailed || declined.Reference != "TXN-00002" {
		t.Fatalf("declined payment: status=%s reference=%s", declined.Status, declined.Reference)
	}
	if declined.FailureReason == nil || *declined.FailureReason != services.ReasonOverLimit {
		t.Fatalf("declined reason = %v", declined.FailureReason)
	}

	// lookup through both route families
	for _, path := range []string{"/api/payments/" + first.ID, "/api/transactions/" + first.ID} {
		rec = do(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status = %d", path, rec.Code)
		}
		if got := decodeTxn(t, rec); got.ID != first.ID {
			t.Fatalf("GET %s returned %s", path, got.ID)
		}
	}

	// refund the successful one
	rec = do(t, h, http.MethodPatch, "/api/transactions/"+first.ID+"/refund", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("refund: status = %d body = %s", rec.Code, rec.Body.String())
	}
	refunded := decodeTxn(t, rec)
	if refunded.Status != models.TxnRefunded || !refunded.Refunded {
		t.Fatalf("refund result: status=%s refunded=%v", refunded.Status, refunded.Refunded)
	}

	// second refund is rejected with a distinct code
	rec = do(t, h, http.MethodPatch, "/api/transactions/"+first.ID+"/refund", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second refund: status = %d", rec.Code)
	}
	var apiErr httpx.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "already_refunded" {
		t.Fatalf("second refund code = %s", apiErr.Code)
	}

	// the failed transaction cannot be refunded
	rec = do(t, h, http.MethodPatch, "/api/transactions/"+declined.ID+"/refund", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("refund of declined: status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "not_refundable" {
		t.Fatalf("refund of declined code = %s", apiErr.Code)
	}

	// listing is newest first
	rec = do(t, h, http.MethodGet, "/api/transactions", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status = %d", rec.Code)
	}
	var list []models.Transaction
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("list length = %d", len(list))
	}
	// the declined payment was created later, so it leads; the refund did not
	// move the first transaction's timestamp
	if list[0].ID != declined.ID || list[1].ID != first.ID {
		t.Fatalf("list order = %s, %s", list[0].ID, list[1].ID)
	}
	if list[0].Timestamp.Before(list[1].Timestamp) {
		t.Fatalf("list not newest first: %s before %s", list[0].Timestamp, list[1].Timestamp)
	}
}

func TestMetricsEndpointIsWired(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("empty exposition body")
	}
}

func TestLookupUnknownIDs(t *testing.T) {
	h := newTestRouter(t)
	for _, path := range []string{"/api/payments/nope", "/api/transactions/nope"} {
		rec := do(t, h, http.MethodGet, path, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s: status = %d", path, rec.Code)
		}
	}
	rec := do(t, h, http.MethodPatch, "/api/transactions/nope/refund", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("refund unknown: status = %d", rec.Code)
	}
}

func TestCreatePaymentRequiresMethod(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/payments", map[string]any{"amount": 10})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var apiErr httpx.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "validation" {
		t.Fatalf("code = %s", apiErr.Code)
	}
}

func TestCreatePaymentWithInjectedFailure(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/api/payments", map[string]any{
		"amount": 10, "payment_method": "qr", "failure_reason": "Card declined by issuer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	tx := decodeTxn(t, rec)
	if tx.Status != models.TxnFailed || tx.FailureReason == nil || *tx.FailureReason != "Card declined by issuer" {
		t.Fatalf("injected failure: %+v", tx)
	}
}

func TestStorageFailureSurfacesAs500(t *testing.T) {
	st := store.NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	svc := services.NewPaymentService(st, nil, nil)
	h := api.NewRouter(config.Config{Env: "test", RateRPS: 1000}, svc)

	rec := do(t, h, http.MethodGet, "/api/merchant", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var apiErr httpx.APIError
	if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Code != "storage_error" {
		t.Fatalf("code = %s", apiErr.Code)
	}
}
