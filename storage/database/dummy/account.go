package dummydb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/tmalela/elimisha/core/account"
)

type accountRepository struct {
	db *accountTable
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db.account}
}

func (repo *accountRepository) query() []account.Account {
	accts := make([]account.Account, 0, len(repo.db.table))
	for _, acct := range repo.db.table {
		accts = append(accts, *acct)
	}
	return accts
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedAccounts ...account.Account) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, acct := range repo.query() {
		if acct.Email.String == email && !isExcluded(acct, excludedAccounts) {
			return account.ErrEmailExists
		}
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	repo.db.table[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if acct, ok := repo.db.table[filter.ID]; ok {
			return *acct, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	if filter.Email != "" {
		for _, acct := range repo.query() {
			if acct.Email.String == filter.Email {
				return acct, nil
			}
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[acct.ID]; !ok {
		return account.Account{}, account.ErrNotFound
	}
	repo.db.table[acct.ID] = &acct
	return acct, nil
}

func (repo *accountRepository) ConsumeResetToken(ctx context.Context, token string, hash []byte, now time.Time) (account.Account, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// find-and-clear under one lock; a raced second consume must miss
	for _, acct := range repo.db.table {
		if acct.ResetToken.String != token {
			continue
		}
		if !acct.ResetTokenExpiry.Valid || !acct.ResetTokenExpiry.Time.After(now) {
			break
		}
		acct.PasswordHash = hash
		acct.ResetToken = null.String{}
		acct.ResetTokenExpiry = null.Time{}
		acct.UpdatedAt = now
		return *acct, nil
	}
	return account.Account{}, account.ErrNotFound
}

func isExcluded(acct account.Account, excludedAccounts []account.Account) bool {
	for _, excl := range excludedAccounts {
		if acct.ID == excl.ID {
			return true
		}
	}
	return false
}
