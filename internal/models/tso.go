package models

import "time"

// NoiseType classifies how a support call's transaction reference was corrupted.
type NoiseType string

const (
	NoiseClean         NoiseType = "clean"
	NoiseMissing       NoiseType = "missing"
	NoiseFabricated    NoiseType = "fabricated"
	NoiseWrongCustomer NoiseType = "wrong_customer"
)

// NoiseTypes lists every category in reporting order.
var NoiseTypes = []NoiseType{NoiseClean, NoiseMissing, NoiseFabricated, NoiseWrongCustomer}

// TSOCall is a synthetic support contact as emitted to the tso_calls table.
type TSOCall struct {
	CallID           string
	Timestamp        time.Time
	CustomerID       string
	CustomerRegion   string
	IssueCategory    string
	IssueDescription string
	ServiceType      string
	TransactionRef   string
	ResolutionMins   int
	Escalated        bool
	ResolutionCode   string
}

// TSOCallRecord is the audit entry kept for every emitted call.
type TSOCallRecord struct {
	CallID               string    `json:"call_id"`
	TrueTransactionID    string    `json:"true_transaction_id"`
	EmittedTransactionID string    `json:"emitted_transaction_id"`
	NoiseType            NoiseType `json:"noise_type"`
	DelayMinutes         int       `json:"delay_minutes"`
}
