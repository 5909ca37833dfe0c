package enums

// TransactionStatus tracks the verification state of a top-up transaction.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "Pending"
	TransactionStatusProcessing TransactionStatus = "Processing"
	TransactionStatusAccepted   TransactionStatus = "Accepted"
	TransactionStatusRejected   TransactionStatus = "Rejected"
)

// String implements fmt.Stringer.
func (s TransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known TransactionStatus.
func (s TransactionStatus) IsValid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusProcessing, TransactionStatusAccepted, TransactionStatusRejected:
		return true
	}
	return false
}

// ProofStatus marks whether a payment proof has been consumed.
type ProofStatus string

const (
	ProofStatusUnused ProofStatus = "unused"
	ProofStatusUsed   ProofStatus = "used"
)

// String implements fmt.Stringer.
func (s ProofStatus) String() string {
	return string(s)
}

// PayoutStatus tracks a referral withdrawal request.
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "Pending"
	PayoutStatusProcessing PayoutStatus = "Processing"
	PayoutStatusPaid       PayoutStatus = "Paid"
)

// String implements fmt.Stringer.
func (s PayoutStatus) String() string {
	return string(s)
}
