package fee

import (
	"context"
	"time"

	"github.com/tmalela/elimisha/core/student"
)

type (
	Service interface {
		// ComputeFeeStatus reconciles a student's configured fees against
		// their approved payments. Read-only and idempotent.
		ComputeFeeStatus(ctx context.Context, studentID string) (Summary, error)

		// RecordPayment appends one fee transaction for a student. Recorded
		// payments are immediately counted as paid.
		RecordPayment(ctx context.Context, np NewPayment) (Payment, error)
	}

	service struct {
		repo     Repository
		students student.Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, students student.Repository) Service {
	return &service{repo: repo, students: students}
}

func (svc *service) ComputeFeeStatus(ctx context.Context, studentID string) (Summary, error) {
	cred, err := svc.students.GetCredential(ctx, student.GetFilter{ID: studentID})
	if err != nil {
		if err == student.ErrNotFound {
			return Summary{}, ErrStudentNotFound
		}
		return Summary{}, err
	}

	// a missing structure is a valid state: nothing configured, total 0
	categories := map[string]float64{}
	fs, err := svc.repo.GetStructure(ctx, StructureFilter{
		BranchID: cred.BranchID.String,
		Class:    cred.Class,
	})
	if err != nil && err != ErrStructureNotFound {
		return Summary{}, err
	}
	if err == nil && fs.Categories != nil {
		categories = fs.Categories
	}

	payments, err := svc.repo.FilterPayments(ctx, PaymentFilter{
		StudentID: cred.ID,
		BranchID:  cred.BranchID.String,
	})
	if err != nil {
		return Summary{}, err
	}

	approved := make([]Payment, 0, len(payments))
	var paidTotal float64
	for _, p := range payments {
		if p.Approved() {
			approved = append(approved, p)
			// every approved payment counts, configured category or not
			paidTotal += p.Amount
		}
	}

	var structureTotal float64
	for _, amount := range categories {
		structureTotal += amount
	}

	pending := structureTotal - paidTotal
	if pending < 0 {
		// overpayment is absorbed, never surfaced as negative
		pending = 0
	}

	return Summary{
		FeeStructureTotal: structureTotal,
		PaidTotal:         paidTotal,
		PendingAmount:     pending,
		FeeStructure:      categories,
		Payments:          approved,
	}, nil
}

func (svc *service) RecordPayment(ctx context.Context, np NewPayment) (Payment, error) {
	cred, err := svc.students.GetCredential(ctx, student.GetFilter{ID: np.StudentID})
	if err != nil {
		if err == student.ErrNotFound {
			return Payment{}, ErrStudentNotFound
		}
		return Payment{}, err
	}

	return svc.repo.CreatePayment(ctx, Payment{
		StudentID: cred.ID,
		BranchID:  cred.BranchID.String,
		Category:  np.Category,
		Amount:    np.Amount,
		Mode:      np.Mode,
		Note:      np.Note,
		Status:    StatusApproved,
		PaidAt:    time.Now().UTC(),
	})
}
