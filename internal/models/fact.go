package models

import "time"

// Final statuses a transaction can end in.
const (
	StatusSuccess             = "success"
	StatusTimeout             = "timeout"
	StatusRetry               = "retry"
	StatusCompletedAfterRetry = "completed_after_retry"
)

// TransactionFact is one synthetic business transaction. Built once by the fact stream
// and treated as read-only afterwards.
type TransactionFact struct {
	TransactionID  string
	TraceID        string
	CustomerID     string
	CustomerRegion string
	Type           string
	ServiceType    string
	Region         string

	StartTS     time.Time
	EndTS       time.Time
	ClockSkewMS int

	CrossRegion         bool
	DependencyRegion    string
	DependencyService   string
	CircuitID           string
	DependencyLatencyMS float64

	FinalStatus       string
	RetryCount        int
	ErrorCode         string
	HTTPStatus        string
	EndToEndLatencyMS float64
	BaseLatencyMS     float64

	ImpactedByPrimary    bool
	ImpactedByConfounder bool
	ConfounderLabel      string

	ServicesChain []string
}

// AttemptCount is the number of tries including retries.
func (f TransactionFact) AttemptCount() int {
	return max(1, f.RetryCount+1)
}

// TimedOut reports whether the transaction ended in a timeout.
func (f TransactionFact) TimedOut() bool {
	return f.FinalStatus == StatusTimeout
}

// ImpactTier labels the strongest impact the fact carries.
func (f TransactionFact) ImpactTier() string {
	switch {
	case f.ImpactedByPrimary:
		return "primary"
	case f.ImpactedByConfounder:
		return "confounder"
	default:
		return "baseline"
	}
}
