package services

import "fmt"

// ErrorKind classifies domain errors so transports can map them to responses
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindValidation
	KindInsufficientStock
	KindIllegalTransition
	KindUnauthorized
	KindConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindValidation:
		return "ValidationError"
	case KindInsufficientStock:
		return "InsufficientStock"
	case KindIllegalTransition:
		return "IllegalTransition"
	case KindUnauthorized:
		return "Unauthorized"
	case KindConflict:
		return "Conflict"
	}
	return "Unknown"
}

// DomainError is the typed error returned by every domain operation.
// Two DomainErrors match under errors.Is when their codes are equal, so a
// sentinel keeps matching after WithMessage adds request specific detail.
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is implements errors.Is matching by code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of the error carrying a more specific message
func (e *DomainError) WithMessage(format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: e.Kind, Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrProductNotFound = &DomainError{KindNotFound, "PRODUCT_NOT_FOUND", "Product not found"}
	ErrOrderNotFound   = &DomainError{KindNotFound, "ORDER_NOT_FOUND", "Order not found"}
	ErrProjectNotFound = &DomainError{KindNotFound, "PROJECT_NOT_FOUND", "Project not found"}
	ErrExpenseNotFound = &DomainError{KindNotFound, "EXPENSE_NOT_FOUND", "Expense not found"}
	ErrTaskNotFound    = &DomainError{KindNotFound, "TASK_NOT_FOUND", "Task not found"}
	ErrProfileNotFound = &DomainError{KindNotFound, "PROFILE_NOT_FOUND", "Talent profile not found"}
	ErrInviteNotFound  = &DomainError{KindNotFound, "INVITE_NOT_FOUND", "Invite not found"}

	ErrBelowMinimumOrder    = &DomainError{KindValidation, "BELOW_MINIMUM_ORDER", "Quantity is below the product's minimum order"}
	ErrInvalidQuantity      = &DomainError{KindValidation, "INVALID_QUANTITY", "Quantity must be a positive integer"}
	ErrInvalidAddress       = &DomainError{KindValidation, "INVALID_ADDRESS", "Delivery address does not belong to the current user"}
	ErrInvalidPaymentMethod = &DomainError{KindValidation, "INVALID_PAYMENT_METHOD", "Payment method must be CASH, CREDIT_CARD or INVOICE"}
	ErrInvalidStatus        = &DomainError{KindValidation, "INVALID_STATUS", "Unknown status"}
	ErrInvalidAmount        = &DomainError{KindValidation, "INVALID_AMOUNT", "Amount must be a positive number"}
	ErrInvalidCategory      = &DomainError{KindValidation, "INVALID_CATEGORY", "Unknown expense category"}
	ErrInvalidProduct       = &DomainError{KindValidation, "INVALID_PRODUCT", "Invalid product data"}
	ErrMissingField         = &DomainError{KindValidation, "MISSING_FIELD", "A required field is missing"}
	ErrDuplicateProfile     = &DomainError{KindValidation, "PROFILE_EXISTS", "A profile already exists for this user"}

	ErrInsufficientStock = &DomainError{KindInsufficientStock, "INSUFFICIENT_STOCK", "Not enough stock to fill this order"}

	ErrIllegalTransition = &DomainError{KindIllegalTransition, "ILLEGAL_TRANSITION", "This status change is not allowed"}

	ErrStockChanged = &DomainError{KindConflict, "STOCK_CHANGED", "Stock changed while the product was being edited; reload and retry"}

	ErrForbidden               = &DomainError{KindUnauthorized, "FORBIDDEN", "You do not have permission to access this resource"}
	ErrSupplierProfileRequired = &DomainError{KindUnauthorized, "SUPPLIER_PROFILE_REQUIRED", "Create a supplier profile first"}
)
