package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TxnSuccess  TransactionStatus = "success"
	TxnFailed   TransactionStatus = "failed"
	TxnRefunded TransactionStatus = "refunded"
)

type Transaction struct {
	ID            string            `json:"id"`
	Reference     string            `json:"reference"`
	Amount        decimal.Decimal   `json:"amount"`
	PaymentMethod string            `json:"payment_method"`
	Status        TransactionStatus `json:"status"`
	Timestamp     time.Time         `json:"timestamp"`
	Refunded      bool              `json:"refunded"`
	FailureReason *string           `json:"failure_reason,omitempty"`
}
