package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, publicMsg: "caller lacks the required role"},
		{code: CodeInsufficientResources, publicMsg: "unit or currency balance too low", detailsOK: true},
		{code: CodeInvalidValuation, publicMsg: "price or cost must be positive"},
		{code: CodeInvalidQuantity, publicMsg: "quantity must be positive"},
		{code: CodeInvalidFeeStructure, publicMsg: "fee rate outside its allowed bound"},
		{code: CodeTransferFailure, publicMsg: "economic invariant rejected the transfer", detailsOK: true},
		{code: CodeIdentityConflict, publicMsg: "caller and counterparty must be distinct"},
		{code: CodeCapacityExceeded, publicMsg: "storage ceiling would be breached"},
		{code: CodeBoundaryViolation, publicMsg: "configuration parameter outside its range"},
		{code: CodeDuplicateSubscription, publicMsg: "subscription already exists for this pair"},
		{code: CodeInternal, publicMsg: "internal error", retryable: true},
		{code: CodeDependency, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.PublicMessage != "internal error" || !meta.Retryable {
		t.Fatalf("expected internal metadata, got %+v", meta)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeInvalidQuantity, "quantity is zero")
	if base.Code() != CodeInvalidQuantity {
		t.Fatalf("expected invalid quantity code, got %s", base.Code())
	}
	if base.Message() != "quantity is zero" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	if got := base.WithDetails(map[string]any{"qty": 0}).Details(); got == nil {
		t.Fatalf("expected details to stick")
	}
	if base.Error() != fmt.Sprintf("%s: %s", CodeInvalidQuantity, "quantity is zero") {
		t.Fatalf("unexpected Error() output %q", base.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row missing")
	wrapped := Wrap(CodeNotFound, cause, "listing not found")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to match cause")
	}
	if As(wrapped) == nil || As(wrapped).Code() != CodeNotFound {
		t.Fatalf("expected typed error with not found code")
	}
	if Wrap(CodeNotFound, nil, "no cause").Unwrap() != nil {
		t.Fatalf("wrap without cause should not unwrap")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeCapacityExceeded, "ceiling"))
	if !HasCode(err, CodeCapacityExceeded) {
		t.Fatalf("expected capacity code through wrapping")
	}
	if HasCode(err, CodeUnauthorized) {
		t.Fatalf("unexpected code match")
	}
	if HasCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain error should not match any code")
	}
}
