package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmalela/elimisha/core/account"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var accountColumns = []string{
	"id", "name", "email", "phone", "role", "institution_id", "branch_id",
	"is_active", "password_hash", "reset_token", "reset_token_expiry",
	"created_at", "updated_at",
}

type accountRow struct {
	ID               string      `db:"id"`
	Name             string      `db:"name"`
	Email            null.String `db:"email"`
	Phone            null.String `db:"phone"`
	Role             string      `db:"role"`
	InstitutionID    null.String `db:"institution_id"`
	BranchID         null.String `db:"branch_id"`
	IsActive         bool        `db:"is_active"`
	PasswordHash     []byte      `db:"password_hash"`
	ResetToken       null.String `db:"reset_token"`
	ResetTokenExpiry null.Time   `db:"reset_token_expiry"`
	CreatedAt        time.Time   `db:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at"`
}

func (row accountRow) toAccount() account.Account {
	return account.Account{
		ID:               row.ID,
		Name:             row.Name,
		Email:            row.Email,
		Phone:            row.Phone,
		Role:             row.Role,
		InstitutionID:    row.InstitutionID,
		BranchID:         row.BranchID,
		IsActive:         row.IsActive,
		PasswordHash:     row.PasswordHash,
		ResetToken:       row.ResetToken,
		ResetTokenExpiry: row.ResetTokenExpiry,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedAccounts ...account.Account) error {
	qb := psql.Select("COUNT(*)").
		From("account").
		Where(sq.Eq{"email": email})
	if len(excludedAccounts) > 0 {
		ids := make([]string, 0, len(excludedAccounts))
		for _, acct := range excludedAccounts {
			ids = append(ids, acct.ID)
		}
		qb = qb.Where(sq.NotEq{"id": ids})
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var count int
	if err = repo.db.GetContext(ctx, &count, query, args...); err != nil {
		return queryErr(err, "checking email uniqueness")
	}
	if count > 0 {
		return account.ErrEmailExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	query, args, err := psql.Insert("account").
		Columns(accountColumns...).
		Values(
			acct.ID, acct.Name, acct.Email, acct.Phone, acct.Role,
			acct.InstitutionID, acct.BranchID, acct.IsActive, acct.PasswordHash,
			acct.ResetToken, acct.ResetTokenExpiry, acct.CreatedAt, acct.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "building query")
	}

	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return account.Account{}, queryErr(err, "creating account")
	}
	return acct, nil
}

func (repo *accountRepository) GetAccount(ctx context.Context, filter account.GetFilter) (account.Account, error) {
	qb := psql.Select(accountColumns...).From("account")
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		qb = qb.Where(sq.Eq{"email": filter.Email})
	default:
		return account.Account{}, account.ErrNotFound
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "building query")
	}

	var row accountRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, queryErr(err, "getting account")
	}
	return row.toAccount(), nil
}

func (repo *accountRepository) UpdateAccount(ctx context.Context, acct account.Account) (account.Account, error) {
	query, args, err := psql.Update("account").
		Set("name", acct.Name).
		Set("email", acct.Email).
		Set("phone", acct.Phone).
		Set("role", acct.Role).
		Set("institution_id", acct.InstitutionID).
		Set("branch_id", acct.BranchID).
		Set("is_active", acct.IsActive).
		Set("password_hash", acct.PasswordHash).
		Set("reset_token", acct.ResetToken).
		Set("reset_token_expiry", acct.ResetTokenExpiry).
		Set("updated_at", acct.UpdatedAt).
		Where(sq.Eq{"id": acct.ID}).
		ToSql()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return account.Account{}, queryErr(err, "updating account")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return account.Account{}, account.ErrNotFound
	}
	return acct, nil
}

// ConsumeResetToken installs the new password hash and clears the token pair
// in a single UPDATE so a raced second consume finds no matching row.
func (repo *accountRepository) ConsumeResetToken(ctx context.Context, token string, hash []byte, now time.Time) (account.Account, error) {
	query, args, err := psql.Update("account").
		Set("password_hash", hash).
		Set("reset_token", nil).
		Set("reset_token_expiry", nil).
		Set("updated_at", now).
		Where(sq.Eq{"reset_token": token}).
		Where(sq.Gt{"reset_token_expiry": now}).
		Suffix("RETURNING " + joinColumns(accountColumns)).
		ToSql()
	if err != nil {
		return account.Account{}, errors.Wrap(err, "building query")
	}

	var row accountRow
	if err = repo.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		if err == sql.ErrNoRows {
			return account.Account{}, account.ErrNotFound
		}
		return account.Account{}, queryErr(err, "consuming reset token")
	}
	return row.toAccount(), nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, col := range cols {
		if i > 0 {
			out += ", "
		}
		out += col
	}
	return out
}
