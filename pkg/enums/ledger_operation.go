package enums

import "fmt"

// LedgerOperation names a state-mutating entry point of the ledger core.
type LedgerOperation string

const (
	LedgerOperationPostListing      LedgerOperation = "post_listing"
	LedgerOperationWithdrawListing  LedgerOperation = "withdraw_listing"
	LedgerOperationPurchase         LedgerOperation = "purchase"
	LedgerOperationIngest           LedgerOperation = "ingest"
	LedgerOperationRefund           LedgerOperation = "refund"
	LedgerOperationDirectTransfer   LedgerOperation = "direct_transfer"
	LedgerOperationEstablishPlan    LedgerOperation = "establish_plan"
	LedgerOperationDeactivatePlan   LedgerOperation = "deactivate_plan"
	LedgerOperationSubscribe        LedgerOperation = "subscribe"
	LedgerOperationQualityAudit     LedgerOperation = "quality_audit"
	LedgerOperationRecordMetrics    LedgerOperation = "record_metrics"
	LedgerOperationGrantAccess      LedgerOperation = "grant_access"
	LedgerOperationCertifyOperator  LedgerOperation = "certify_operator"
	LedgerOperationRevokeOperator   LedgerOperation = "revoke_operator"
	LedgerOperationSetRates         LedgerOperation = "set_rates"
	LedgerOperationAddReputation    LedgerOperation = "add_reputation"
)

var validLedgerOperations = []LedgerOperation{
	LedgerOperationPostListing,
	LedgerOperationWithdrawListing,
	LedgerOperationPurchase,
	LedgerOperationIngest,
	LedgerOperationRefund,
	LedgerOperationDirectTransfer,
	LedgerOperationEstablishPlan,
	LedgerOperationDeactivatePlan,
	LedgerOperationSubscribe,
	LedgerOperationQualityAudit,
	LedgerOperationRecordMetrics,
	LedgerOperationGrantAccess,
	LedgerOperationCertifyOperator,
	LedgerOperationRevokeOperator,
	LedgerOperationSetRates,
	LedgerOperationAddReputation,
}

// IsValid reports whether the value is a known ledger operation.
func (o LedgerOperation) IsValid() bool {
	for _, candidate := range validLedgerOperations {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseLedgerOperation converts raw input into LedgerOperation.
func ParseLedgerOperation(value string) (LedgerOperation, error) {
	for _, candidate := range validLedgerOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger operation %q", value)
}
