package fee_test

import (
	"context"
	"testing"
	"time"

	"github.com/tmalela/elimisha/core/fee"
	"github.com/tmalela/elimisha/core/student"
	dummydb "github.com/tmalela/elimisha/storage/database/dummy"
	testutil "github.com/tmalela/elimisha/tests"
)

func setup(t *testing.T) (fee.Service, fee.Repository, student.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	feeRepo := dummydb.NewFeeRepository(db)
	stuRepo := dummydb.NewStudentRepository(db)
	return fee.NewService(feeRepo, stuRepo), feeRepo, stuRepo
}

func TestService_ComputeFeeStatus(t *testing.T) {
	svc, feeRepo, stuRepo := setup(t)
	ctx := context.Background()

	stu := testutil.CreateStudent(t, stuRepo, "Solo Student", "REG-001", "0990001111", "P5", "", "", "inst1", "br1", true)
	other := testutil.CreateStudent(t, stuRepo, "Other Student", "REG-002", "0990002222", "P5", "", "", "inst1", "br1", true)
	unconfigured := testutil.CreateStudent(t, stuRepo, "New Class Kid", "REG-003", "0990003333", "LKG", "", "", "inst1", "br1", true)

	testutil.CreateStructure(t, feeRepo, "br1", "P5", map[string]float64{
		"Tuition": 1000,
		"Bus":     200,
		"Library": 50,
	})

	now := time.Now().UTC()
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Tuition", 400, fee.StatusApproved, now.Add(-3*time.Hour))
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Tuition", 300, "", now.Add(-2*time.Hour)) // legacy empty status counts as paid
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Bus", 250, fee.StatusApproved, now.Add(-1*time.Hour))
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Sports", 75, fee.StatusApproved, now) // unconfigured category
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Tuition", 999, fee.StatusPending, now)
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Library", 999, fee.StatusRejected, now)
	testutil.CreatePayment(t, feeRepo, other.ID, "br1", "Tuition", 1000, fee.StatusApproved, now)

	if _, err := svc.ComputeFeeStatus(ctx, "nope"); err != fee.ErrStudentNotFound {
		t.Fatalf("ComputeFeeStatus() unknown student error = %v, want %v", err, fee.ErrStudentNotFound)
	}

	sum, err := svc.ComputeFeeStatus(ctx, stu.ID)
	if err != nil {
		t.Fatalf("ComputeFeeStatus() error = %v", err)
	}

	if sum.FeeStructureTotal != 1250 {
		t.Errorf("FeeStructureTotal = %v, want 1250", sum.FeeStructureTotal)
	}
	// 400 + 300 (legacy) + 250 + 75 (unconfigured); pending/rejected excluded
	if sum.PaidTotal != 1025 {
		t.Errorf("PaidTotal = %v, want 1025", sum.PaidTotal)
	}
	if sum.PendingAmount != 225 {
		t.Errorf("PendingAmount = %v, want 225", sum.PendingAmount)
	}
	if len(sum.Payments) != 4 {
		t.Fatalf("len(Payments) = %d, want 4 approved payments", len(sum.Payments))
	}
	for i := 1; i < len(sum.Payments); i++ {
		if sum.Payments[i-1].PaidAt.Before(sum.Payments[i].PaidAt) {
			t.Errorf("Payments not ordered newest first at index %d", i)
		}
	}

	// per-category due is clamped at zero on overpayment
	if due := sum.CategoryDue("Tuition"); due != 300 {
		t.Errorf("CategoryDue(Tuition) = %v, want 300", due)
	}
	if due := sum.CategoryDue("Bus"); due != 0 { // paid 250 of 200
		t.Errorf("CategoryDue(Bus) = %v, want 0", due)
	}
	if due := sum.CategoryDue("Library"); due != 50 {
		t.Errorf("CategoryDue(Library) = %v, want 50", due)
	}
	if due := sum.CategoryDue("Sports"); due != 0 { // unconfigured
		t.Errorf("CategoryDue(Sports) = %v, want 0", due)
	}

	// no structure configured for this (branch, class): zero totals, empty map
	sum, err = svc.ComputeFeeStatus(ctx, unconfigured.ID)
	if err != nil {
		t.Fatalf("ComputeFeeStatus() error = %v", err)
	}
	if sum.FeeStructureTotal != 0 || sum.PendingAmount != 0 {
		t.Errorf("unconfigured class totals = %v/%v, want 0/0", sum.FeeStructureTotal, sum.PendingAmount)
	}
	if sum.FeeStructure == nil || len(sum.FeeStructure) != 0 {
		t.Errorf("FeeStructure = %v, want empty map", sum.FeeStructure)
	}
}

func TestService_ComputeFeeStatus_overpayment(t *testing.T) {
	svc, feeRepo, stuRepo := setup(t)
	ctx := context.Background()

	stu := testutil.CreateStudent(t, stuRepo, "Rich Kid", "REG-010", "0990100000", "P5", "", "", "inst1", "br1", true)
	testutil.CreateStructure(t, feeRepo, "br1", "P5", map[string]float64{"Tuition": 500})
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Tuition", 800, fee.StatusApproved, time.Now())

	sum, err := svc.ComputeFeeStatus(ctx, stu.ID)
	if err != nil {
		t.Fatalf("ComputeFeeStatus() error = %v", err)
	}
	if sum.PaidTotal != 800 {
		t.Errorf("PaidTotal = %v, want 800", sum.PaidTotal)
	}
	if sum.PendingAmount != 0 {
		t.Errorf("PendingAmount = %v, want 0 (never negative)", sum.PendingAmount)
	}
}

func TestService_RecordPayment(t *testing.T) {
	svc, _, stuRepo := setup(t)
	ctx := context.Background()

	stu := testutil.CreateStudent(t, stuRepo, "Solo Student", "REG-001", "0990001111", "P5", "", "", "inst1", "br1", true)

	if _, err := svc.RecordPayment(ctx, fee.NewPayment{StudentID: "nope", Category: "Tuition", Amount: 100}); err != fee.ErrStudentNotFound {
		t.Fatalf("RecordPayment() unknown student error = %v, want %v", err, fee.ErrStudentNotFound)
	}

	p, err := svc.RecordPayment(ctx, fee.NewPayment{StudentID: stu.ID, Category: "Tuition", Amount: 100, Mode: "cash"})
	if err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}
	if p.Status != fee.StatusApproved {
		t.Errorf("Status = %q, want %q", p.Status, fee.StatusApproved)
	}
	if p.BranchID != "br1" {
		t.Errorf("BranchID = %q, want br1", p.BranchID)
	}
	if p.PaidAt.IsZero() {
		t.Error("PaidAt was not set")
	}

	// the recorded payment immediately counts as paid
	sum, err := svc.ComputeFeeStatus(ctx, stu.ID)
	if err != nil {
		t.Fatalf("ComputeFeeStatus() error = %v", err)
	}
	if sum.PaidTotal != 100 {
		t.Errorf("PaidTotal = %v, want 100", sum.PaidTotal)
	}
}
