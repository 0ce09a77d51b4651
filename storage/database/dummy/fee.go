package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/tmalela/elimisha/core/fee"
)

type feeRepository struct {
	structures *structureTable
	payments   *paymentTable
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *DB) fee.Repository {
	return &feeRepository{structures: db.structure, payments: db.payment}
}

func (repo *feeRepository) CreateStructure(ctx context.Context, fs fee.Structure) (fee.Structure, error) {
	repo.structures.Lock()
	defer repo.structures.Unlock()

	if fs.ID == "" {
		fs.ID = uuid.New().String()
	}
	repo.structures.table[fs.ID] = &fs
	return fs, nil
}

func (repo *feeRepository) GetStructure(ctx context.Context, filter fee.StructureFilter) (fee.Structure, error) {
	repo.structures.RLock()
	defer repo.structures.RUnlock()

	if filter.ID != "" {
		if fs, ok := repo.structures.table[filter.ID]; ok {
			return *fs, nil
		}
		return fee.Structure{}, fee.ErrStructureNotFound
	}
	if filter.BranchID != "" && filter.Class != "" {
		for _, fs := range repo.structures.table {
			if fs.BranchID == filter.BranchID && fs.Class == filter.Class {
				return *fs, nil
			}
		}
	}
	return fee.Structure{}, fee.ErrStructureNotFound
}

func (repo *feeRepository) CreatePayment(ctx context.Context, p fee.Payment) (fee.Payment, error) {
	repo.payments.Lock()
	defer repo.payments.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	repo.payments.table[p.ID] = &p
	return p, nil
}

func (repo *feeRepository) FilterPayments(ctx context.Context, filter fee.PaymentFilter) ([]fee.Payment, error) {
	repo.payments.RLock()
	defer repo.payments.RUnlock()

	payments := make([]fee.Payment, 0, len(repo.payments.table))
	for _, p := range repo.payments.table {
		if filter.StudentID != "" && p.StudentID != filter.StudentID {
			continue
		}
		if filter.BranchID != "" && p.BranchID != filter.BranchID {
			continue
		}
		payments = append(payments, *p)
	}
	sort.Slice(payments, func(i, j int) bool { return payments[i].PaidAt.After(payments[j].PaidAt) })
	return payments, nil
}
