package services

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simplepos/pos-backend/internal/audit"
	"github.com/simplepos/pos-backend/internal/metrics"
	"github.com/simplepos/pos-backend/internal/models"
	"github.com/simplepos/pos-backend/internal/reference"
	"github.com/simplepos/pos-backend/internal/store"
	"github.com/simplepos/pos-backend/internal/worker"
)

var (
	ErrNotFound        = errors.New("transaction not found")
	ErrAlreadyRefunded = errors.New("transaction already refunded")
	ErrNotRefundable   = errors.New("only successful transactions can be refunded")
)

// Reasons produced by the payment rules. An explicit caller-supplied reason
// wins over both checks and is recorded verbatim.
const (
	ReasonInvalidAmount = "Invalid amount. Must be greater than 0."
	ReasonOverLimit     = "Transaction limit exceeded. Maximum allowed is £5000."
)

var txnLimit = decimal.NewFromInt(5000)

// PaymentService is the transaction engine: it decides payment outcomes,
// appends records to the dataset, and applies refund transitions. Mutations
// run under mu so no two load-mutate-save sequences interleave; queries read
// the latest durable snapshot without the lock.
type PaymentService struct {
	st  store.Store
	wp  *worker.Pool
	log *audit.Log
	mu  sync.Mutex
}

func NewPaymentService(st store.Store, wp *worker.Pool, log *audit.Log) *PaymentService {
	return &PaymentService{st: st, wp: wp, log: log}
}

func (s *PaymentService) audit(entityID, action string, details map[string]any) {
	if s.wp == nil {
		return
	}
	id := entityID
	s.wp.Submit(func() {
		_ = s.log.Append(audit.Entry{
			EntityType: "transaction",
			EntityID:   &id,
			Action:     action,
			Details:    details,
		})
	})
}

// CreatePayment records a payment attempt. A declined attempt is recorded as
// a failed transaction, not rejected; the only error path is the store.
func (s *PaymentService) CreatePayment(amount decimal.Decimal, method, failureReason string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.st.Load()
	if err != nil {
		return models.Transaction{}, err
	}

	status := models.TxnSuccess
	var reason *string
	switch {
	case failureReason != "":
		status, reason = models.TxnFailed, &failureReason
	case amount.Sign() <= 0:
		r := ReasonInvalidAmount
		status, reason = models.TxnFailed, &r
	case amount.GreaterThan(txnLimit):
		r := ReasonOverLimit
		status, reason = models.TxnFailed, &r
	}

	t := models.Transaction{
		ID:            uuid.NewString(),
		Reference:     reference.Next(len(d.Transactions)),
		Amount:        amount,
		PaymentMethod: method,
		Status:        status,
		Timestamp:     time.Now().UTC(),
		Refunded:      false,
		FailureReason: reason,
	}

	d.Transactions = append(d.Transactions, t)
	if err := s.st.Save(d); err != nil {
		return models.Transaction{}, err
	}

	metrics.PaymentsTotal.WithLabelValues(string(status)).Inc()
	s.audit(t.ID, "created", map[string]any{"reference": t.Reference, "status": string(status)})
	return t, nil
}

// Refund applies the one-way success -> refunded transition. A second refund
// reports ErrAlreadyRefunded rather than succeeding quietly.
func (s *PaymentService) Refund(id string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.st.Load()
	if err != nil {
		return models.Transaction{}, err
	}

	i := indexOf(d.Transactions, id)
	if i < 0 {
		return models.Transaction{}, ErrNotFound
	}
	t := &d.Transactions[i]
	if t.Refunded {
		return models.Transaction{}, ErrAlreadyRefunded
	}
	if t.Status != models.TxnSuccess {
		return models.Transaction{}, ErrNotRefundable
	}

	t.Refunded = true
	t.Status = models.TxnRefunded
	if err := s.st.Save(d); err != nil {
		return models.Transaction{}, err
	}

	metrics.RefundsTotal.Inc()
	s.audit(t.ID, "refunded", map[string]any{"reference": t.Reference})
	return *t, nil
}

// Get looks up a transaction by id. Payments and transactions are the same
// records addressed through two route families, so both share this lookup.
func (s *PaymentService) Get(id string) (models.Transaction, error) {
	d, err := s.st.Load()
	if err != nil {
		return models.Transaction{}, err
	}
	if i := indexOf(d.Transactions, id); i >= 0 {
		return d.Transactions[i], nil
	}
	return models.Transaction{}, ErrNotFound
}

// ListTransactions returns the log newest first. The sort is stable, so
// equal timestamps keep their insertion order.
func (s *PaymentService) ListTransactions() ([]models.Transaction, error) {
	d, err := s.st.Load()
	if err != nil {
		return nil, err
	}
	out := make([]models.Transaction, len(d.Transactions))
	copy(out, d.Transactions)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Merchant returns the stored merchant document verbatim.
func (s *PaymentService) Merchant() (models.Merchant, error) {
	d, err := s.st.Load()
	if err != nil {
		return nil, err
	}
	return d.Merchant, nil
}

func indexOf(ts []models.Transaction, id string) int {
	for i := range ts {
		if ts[i].ID == id {
			return i
		}
	}
	return -1
}
