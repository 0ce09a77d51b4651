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

	"github.com/tmalela/elimisha/core/student"
)

var studentColumns = []string{
	"id", "name", "registration_number", "phone", "class", "is_active",
	"account_id", "parent_id", "institution_id", "branch_id",
	"created_at", "updated_at",
}

type studentRow struct {
	ID                 string      `db:"id"`
	Name               string      `db:"name"`
	RegistrationNumber string      `db:"registration_number"`
	Phone              string      `db:"phone"`
	Class              string      `db:"class"`
	IsActive           bool        `db:"is_active"`
	AccountID          null.String `db:"account_id"`
	ParentID           null.String `db:"parent_id"`
	InstitutionID      null.String `db:"institution_id"`
	BranchID           null.String `db:"branch_id"`
	CreatedAt          time.Time   `db:"created_at"`
	UpdatedAt          time.Time   `db:"updated_at"`
}

func (row studentRow) toCredential() student.Credential {
	return student.Credential{
		ID:                 row.ID,
		Name:               row.Name,
		RegistrationNumber: row.RegistrationNumber,
		Phone:              row.Phone,
		Class:              row.Class,
		IsActive:           row.IsActive,
		AccountID:          row.AccountID,
		ParentID:           row.ParentID,
		InstitutionID:      row.InstitutionID,
		BranchID:           row.BranchID,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateCredential(ctx context.Context, cred student.Credential) (student.Credential, error) {
	if cred.ID == "" {
		cred.ID = uuid.New().String()
	}
	query, args, err := psql.Insert("student_credential").
		Columns(studentColumns...).
		Values(
			cred.ID, cred.Name, cred.RegistrationNumber, cred.Phone, cred.Class,
			cred.IsActive, cred.AccountID, cred.ParentID, cred.InstitutionID,
			cred.BranchID, cred.CreatedAt, cred.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return student.Credential{}, errors.Wrap(err, "building query")
	}

	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return student.Credential{}, queryErr(err, "creating student credential")
	}
	return cred, nil
}

func (repo *studentRepository) GetCredential(ctx context.Context, filter student.GetFilter) (student.Credential, error) {
	qb := psql.Select(studentColumns...).From("student_credential")
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.RegistrationNumber != "" && filter.Phone != "":
		qb = qb.Where(sq.Eq{"registration_number": filter.RegistrationNumber, "phone": filter.Phone})
	default:
		return student.Credential{}, student.ErrNotFound
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return student.Credential{}, errors.Wrap(err, "building query")
	}

	var row studentRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return student.Credential{}, student.ErrNotFound
		}
		return student.Credential{}, queryErr(err, "getting student credential")
	}
	return row.toCredential(), nil
}

func (repo *studentRepository) FilterCredentials(ctx context.Context, filter student.QueryFilter) ([]student.Credential, error) {
	qb := psql.Select(studentColumns...).From("student_credential")
	if filter.ParentID != "" {
		qb = qb.Where(sq.Eq{"parent_id": filter.ParentID})
	}
	if filter.IsActive != nil {
		qb = qb.Where(sq.Eq{"is_active": *filter.IsActive})
	}
	query, args, err := qb.OrderBy("created_at").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []studentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, queryErr(err, "filtering student credentials")
	}
	creds := make([]student.Credential, len(rows))
	for i, row := range rows {
		creds[i] = row.toCredential()
	}
	return creds, nil
}

func (repo *studentRepository) UpdateCredential(ctx context.Context, cred student.Credential) (student.Credential, error) {
	query, args, err := psql.Update("student_credential").
		Set("name", cred.Name).
		Set("registration_number", cred.RegistrationNumber).
		Set("phone", cred.Phone).
		Set("class", cred.Class).
		Set("is_active", cred.IsActive).
		Set("account_id", cred.AccountID).
		Set("parent_id", cred.ParentID).
		Set("institution_id", cred.InstitutionID).
		Set("branch_id", cred.BranchID).
		Set("updated_at", cred.UpdatedAt).
		Where(sq.Eq{"id": cred.ID}).
		ToSql()
	if err != nil {
		return student.Credential{}, errors.Wrap(err, "building query")
	}

	res, err := repo.db.ExecContext(ctx, query, args...)
	if err != nil {
		return student.Credential{}, queryErr(err, "updating student credential")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return student.Credential{}, student.ErrNotFound
	}
	return cred, nil
}
