package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"

	"github.com/simplepos/pos-backend/internal/api/httpx"
	"github.com/simplepos/pos-backend/internal/api/validate"
	"github.com/simplepos/pos-backend/internal/config"
	"github.com/simplepos/pos-backend/internal/metrics"
	"github.com/simplepos/pos-backend/internal/middleware"
	"github.com/simplepos/pos-backend/internal/services"
	"github.com/simplepos/pos-backend/internal/store"
)

func NewRouter(cfg config.Config, svc *services.PaymentService) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// ---------- merchant ----------
		r.Get("/merchant", func(w http.ResponseWriter, r *http.Request) {
			m, err := svc.Merchant()
			if err != nil {
				writeStoreError(w, err)
				return
			}
			// stored document goes out verbatim
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write(m)
		})

		// ---------- payments ----------
		r.Post("/payments", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Amount        decimal.Decimal `json:"amount"`
				PaymentMethod string          `json:"payment_method"`
				FailureReason string          `json:"failure_reason"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid request body", nil)
				return
			}
			if ef := validate.Required("payment_method", req.PaymentMethod); ef != nil {
				errs := validate.Errs{*ef}
				httpx.WriteError(w, http.StatusBadRequest, "validation", errs.Error(), errs)
				return
			}
			t, err := svc.CreatePayment(req.Amount, req.PaymentMethod, req.FailureReason)
			if err != nil {
				writeStoreError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, t)
		})

		r.Get("/payments/{id}", func(w http.ResponseWriter, r *http.Request) {
			t, err := svc.Get(chi.URLParam(r, "id"))
			if err != nil {
				writeLookupError(w, err, "Payment not found")
				return
			}
			httpx.WriteJSON(w, http.StatusOK, t)
		})

		// ---------- transactions ----------
		r.Get("/transactions", func(w http.ResponseWriter, r *http.Request) {
			ts, err := svc.ListTransactions()
			if err != nil {
				writeStoreError(w, err)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, ts)
		})

		r.Get("/transactions/{id}", func(w http.ResponseWriter, r *http.Request) {
			t, err := svc.Get(chi.URLParam(r, "id"))
			if err != nil {
				writeLookupError(w, err, "Transaction not found")
				return
			}
			httpx.WriteJSON(w, http.StatusOK, t)
		})

		r.Patch("/transactions/{id}/refund", func(w http.ResponseWriter, r *http.Request) {
			t, err := svc.Refund(chi.URLParam(r, "id"))
			switch {
			case err == nil:
				httpx.WriteJSON(w, http.StatusOK, t)
			case errors.Is(err, services.ErrNotFound):
				httpx.WriteError(w, http.StatusNotFound, "not_found", "Transaction not found", nil)
			case errors.Is(err, services.ErrAlreadyRefunded):
				httpx.WriteError(w, http.StatusBadRequest, "already_refunded", "Transaction already refunded", nil)
			case errors.Is(err, services.ErrNotRefundable):
				httpx.WriteError(w, http.StatusBadRequest, "not_refundable", "Only successful transactions can be refunded", nil)
			default:
				writeStoreError(w, err)
			}
		})
	})

	return r
}

func writeLookupError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, services.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", msg, nil)
		return
	}
	writeStoreError(w, err)
}

func writeStoreError(w http.ResponseWriter, err error) {
	code := "storage_error"
	if errors.Is(err, store.ErrCorrupt) {
		code = "corrupt_data"
	}
	httpx.WriteError(w, http.StatusInternalServerError, code, err.Error(), nil)
}
