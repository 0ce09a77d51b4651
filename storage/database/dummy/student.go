package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/tmalela/elimisha/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) query() []student.Credential {
	creds := make([]student.Credential, 0, len(repo.db.table))
	for _, cred := range repo.db.table {
		creds = append(creds, *cred)
	}
	return creds
}

func (repo *studentRepository) CreateCredential(ctx context.Context, cred student.Credential) (student.Credential, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	repo.db.table[cred.ID] = &cred
	return cred, nil
}

func (repo *studentRepository) GetCredential(ctx context.Context, filter student.GetFilter) (student.Credential, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if cred, ok := repo.db.table[filter.ID]; ok {
			return *cred, nil
		}
		return student.Credential{}, student.ErrNotFound
	}
	if filter.RegistrationNumber != "" && filter.Phone != "" {
		for _, cred := range repo.query() {
			if cred.RegistrationNumber == filter.RegistrationNumber && cred.Phone == filter.Phone {
				return cred, nil
			}
		}
	}
	return student.Credential{}, student.ErrNotFound
}

func (repo *studentRepository) FilterCredentials(ctx context.Context, filter student.QueryFilter) ([]student.Credential, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	creds := repo.query()
	if filter.ParentID != "" {
		var filtered []student.Credential
		for _, cred := range creds {
			if cred.ParentID.String == filter.ParentID {
				filtered = append(filtered, cred)
			}
		}
		creds = filtered
	}
	if creds != nil && filter.IsActive != nil {
		var filtered []student.Credential
		for _, cred := range creds {
			if cred.IsActive == *filter.IsActive {
				filtered = append(filtered, cred)
			}
		}
		creds = filtered
	}
	return creds, nil
}

func (repo *studentRepository) UpdateCredential(ctx context.Context, cred student.Credential) (student.Credential, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cred.ID]; !ok {
		return student.Credential{}, student.ErrNotFound
	}
	repo.db.table[cred.ID] = &cred
	return cred, nil
}
