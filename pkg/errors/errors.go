package errors

import (
	stdErrors "errors"
	"fmt"
)

type Code string

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeUnauthorized          Code = "UNAUTHORIZED"
	CodeInsufficientResources Code = "INSUFFICIENT_RESOURCES"
	CodeInvalidValuation      Code = "INVALID_VALUATION"
	CodeInvalidQuantity       Code = "INVALID_QUANTITY"
	CodeInvalidFeeStructure   Code = "INVALID_FEE_STRUCTURE"
	CodeTransferFailure       Code = "TRANSFER_FAILURE"
	CodeIdentityConflict      Code = "IDENTITY_CONFLICT"
	CodeCapacityExceeded      Code = "CAPACITY_EXCEEDED"
	CodeBoundaryViolation     Code = "BOUNDARY_VIOLATION"
	CodeDuplicateSubscription Code = "DUPLICATE_SUBSCRIPTION"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInternal              Code = "INTERNAL_ERROR"
	CodeDependency            Code = "DEPENDENCY_ERROR"
)

type Metadata struct {
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		PublicMessage: "caller lacks the required role",
	},
	CodeInsufficientResources: {
		PublicMessage:  "unit or currency balance too low",
		DetailsAllowed: true,
	},
	CodeInvalidValuation: {
		PublicMessage: "price or cost must be positive",
	},
	CodeInvalidQuantity: {
		PublicMessage: "quantity must be positive",
	},
	CodeInvalidFeeStructure: {
		PublicMessage: "fee rate outside its allowed bound",
	},
	CodeTransferFailure: {
		PublicMessage:  "economic invariant rejected the transfer",
		DetailsAllowed: true,
	},
	CodeIdentityConflict: {
		PublicMessage: "caller and counterparty must be distinct",
	},
	CodeCapacityExceeded: {
		PublicMessage: "storage ceiling would be breached",
	},
	CodeBoundaryViolation: {
		PublicMessage: "configuration parameter outside its range",
	},
	CodeDuplicateSubscription: {
		PublicMessage: "subscription already exists for this pair",
	},
	CodeNotFound: {
		PublicMessage: "resource not found",
	},
	CodeInternal: {
		Retryable:     true,
		PublicMessage: "internal error",
	},
	CodeDependency: {
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given ledger error code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
