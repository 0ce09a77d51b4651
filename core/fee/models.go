package fee

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/tmalela/elimisha/core"
)

var (
	ErrStructureNotFound = errors.New("fee structure not found")
	ErrStudentNotFound   = errors.New("student not found")
)

// Payment statuses. A persisted empty status is legacy data and reads as
// approved; see Payment.Approved.
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

type (
	// Structure is the configured price list for one (branch, class) pair:
	// a mapping from category name ("Tuition", "Bus") to the amount owed.
	Structure struct {
		ID            string             `json:"id"`
		InstitutionID null.String        `json:"institution_id"`
		BranchID      string             `json:"branch_id"`
		Class         string             `json:"class"`
		Categories    map[string]float64 `json:"categories"`
		CreatedAt     time.Time          `json:"created_at"` // UTC
		UpdatedAt     time.Time          `json:"updated_at"` // UTC
	}

	// Payment is one fee transaction. Payments are inserted once and never
	// mutated; reconciliation only reads them.
	Payment struct {
		ID        string    `json:"id"`
		StudentID string    `json:"student_id"`
		BranchID  string    `json:"branch_id"`
		Category  string    `json:"category"`
		Amount    float64   `json:"amount"`
		Mode      string    `json:"mode"`
		Note      string    `json:"note,omitempty"`
		Status    string    `json:"status"`
		PaidAt    time.Time `json:"paid_at"` // UTC
	}

	// NewPayment contains information needed to record a fee transaction.
	NewPayment struct {
		StudentID string  `json:"studentId" validate:"required"`
		Category  string  `json:"category" validate:"required"`
		Amount    float64 `json:"amount" validate:"required,gt=0"`
		Mode      string  `json:"mode"`
		Note      string  `json:"note"`
	}

	// Summary is the reconciled fee status of one student: the configured
	// totals for their (branch, class), what has been paid against them and
	// what remains due. Key names are the frontend's contract.
	Summary struct {
		FeeStructureTotal float64            `json:"feeStructureTotal"`
		PaidTotal         float64            `json:"paidTotal"`
		PendingAmount     float64            `json:"pendingAmount"`
		FeeStructure      map[string]float64 `json:"feeStructure"`
		Payments          []Payment          `json:"payments"` // approved only, newest first
	}
)

// Approved reports whether the payment counts as paid. An empty status is
// treated exactly like "approved": legacy rows predate the status field and
// were all immediately counted as paid.
func (p Payment) Approved() bool {
	return p.Status == StatusApproved || p.Status == ""
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.StudentID = core.CleanString(np.StudentID)
	np.Category = core.CleanString(np.Category)
	np.Mode = core.CleanString(np.Mode)
	return validate.Struct(np)
}

// CategoryDue reports the outstanding amount for one configured category:
// max(0, configured - paid). Categories match case-sensitively, exactly as
// recorded. Unconfigured categories are always fully paid.
func (s Summary) CategoryDue(category string) float64 {
	total, ok := s.FeeStructure[category]
	if !ok {
		return 0
	}
	var paid float64
	for _, p := range s.Payments {
		if p.Category == category {
			paid += p.Amount
		}
	}
	if due := total - paid; due > 0 {
		return due
	}
	return 0
}

type (
	// StructureFilter identifies at most one Structure.
	StructureFilter struct {
		ID       string
		BranchID string
		Class    string
	}

	// PaymentFilter applies AND on set fields.
	PaymentFilter struct {
		StudentID string
		BranchID  string
	}

	Repository interface {
		CreateStructure(ctx context.Context, fs Structure) (Structure, error)
		GetStructure(ctx context.Context, filter StructureFilter) (Structure, error)
		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		// FilterPayments returns matches ordered by paid_at, newest first.
		FilterPayments(ctx context.Context, filter PaymentFilter) ([]Payment, error)
	}
)
