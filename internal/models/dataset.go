package models

import "encoding/json"

// Merchant is the static profile document. The service stores and returns it
// verbatim and never inspects its fields.
type Merchant = json.RawMessage

// Dataset is the full persisted state: one merchant plus the
// insertion-ordered transaction log.
type Dataset struct {
	Merchant     Merchant      `json:"merchant"`
	Transactions []Transaction `json:"transactions"`
}
