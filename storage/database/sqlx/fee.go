package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/tmalela/elimisha/core/fee"
)

var (
	structureColumns = []string{
		"id", "institution_id", "branch_id", "class", "categories",
		"created_at", "updated_at",
	}
	paymentColumns = []string{
		"id", "student_id", "branch_id", "category", "amount", "mode", "note",
		"status", "paid_at",
	}
)

// categoriesMap maps the categories jsonb column.
type categoriesMap map[string]float64

func (m categoriesMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *categoriesMap) Scan(src interface{}) error {
	if src == nil {
		*m = categoriesMap{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return errors.Errorf("unexpected categories type %T", src)
	}
	return json.Unmarshal(b, m)
}

type structureRow struct {
	ID            string        `db:"id"`
	InstitutionID null.String   `db:"institution_id"`
	BranchID      string        `db:"branch_id"`
	Class         string        `db:"class"`
	Categories    categoriesMap `db:"categories"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (row structureRow) toStructure() fee.Structure {
	return fee.Structure{
		ID:            row.ID,
		InstitutionID: row.InstitutionID,
		BranchID:      row.BranchID,
		Class:         row.Class,
		Categories:    row.Categories,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

type paymentRow struct {
	ID        string      `db:"id"`
	StudentID string      `db:"student_id"`
	BranchID  null.String `db:"branch_id"`
	Category  string      `db:"category"`
	Amount    float64     `db:"amount"`
	Mode      null.String `db:"mode"`
	Note      null.String `db:"note"`
	Status    string      `db:"status"`
	PaidAt    time.Time   `db:"paid_at"`
}

func (row paymentRow) toPayment() fee.Payment {
	return fee.Payment{
		ID:        row.ID,
		StudentID: row.StudentID,
		BranchID:  row.BranchID.String,
		Category:  row.Category,
		Amount:    row.Amount,
		Mode:      row.Mode.String,
		Note:      row.Note.String,
		Status:    row.Status,
		PaidAt:    row.PaidAt,
	}
}

type feeRepository struct {
	db *sqlx.DB
}

var _ fee.Repository = (*feeRepository)(nil) // interface compliance check

func NewFeeRepository(db *sqlx.DB) fee.Repository {
	return &feeRepository{db: db}
}

func (repo *feeRepository) CreateStructure(ctx context.Context, fs fee.Structure) (fee.Structure, error) {
	if fs.ID == "" {
		fs.ID = uuid.New().String()
	}
	query, args, err := psql.Insert("fee_structure").
		Columns(structureColumns...).
		Values(
			fs.ID, fs.InstitutionID, fs.BranchID, fs.Class,
			categoriesMap(fs.Categories), fs.CreatedAt, fs.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fee.Structure{}, errors.Wrap(err, "building query")
	}

	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return fee.Structure{}, queryErr(err, "creating fee structure")
	}
	return fs, nil
}

func (repo *feeRepository) GetStructure(ctx context.Context, filter fee.StructureFilter) (fee.Structure, error) {
	qb := psql.Select(structureColumns...).From("fee_structure")
	switch {
	case filter.ID != "":
		qb = qb.Where(sq.Eq{"id": filter.ID})
	case filter.BranchID != "" && filter.Class != "":
		qb = qb.Where(sq.Eq{"branch_id": filter.BranchID, "class": filter.Class})
	default:
		return fee.Structure{}, fee.ErrStructureNotFound
	}
	query, args, err := qb.ToSql()
	if err != nil {
		return fee.Structure{}, errors.Wrap(err, "building query")
	}

	var row structureRow
	if err = repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return fee.Structure{}, fee.ErrStructureNotFound
		}
		return fee.Structure{}, queryErr(err, "getting fee structure")
	}
	return row.toStructure(), nil
}

func (repo *feeRepository) CreatePayment(ctx context.Context, p fee.Payment) (fee.Payment, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	query, args, err := psql.Insert("payment").
		Columns(paymentColumns...).
		Values(
			p.ID, p.StudentID, null.NewString(p.BranchID, p.BranchID != ""),
			p.Category, p.Amount, null.NewString(p.Mode, p.Mode != ""),
			null.NewString(p.Note, p.Note != ""), p.Status, p.PaidAt,
		).
		ToSql()
	if err != nil {
		return fee.Payment{}, errors.Wrap(err, "building query")
	}

	if _, err = repo.db.ExecContext(ctx, query, args...); err != nil {
		return fee.Payment{}, queryErr(err, "creating payment")
	}
	return p, nil
}

func (repo *feeRepository) FilterPayments(ctx context.Context, filter fee.PaymentFilter) ([]fee.Payment, error) {
	qb := psql.Select(paymentColumns...).From("payment")
	if filter.StudentID != "" {
		qb = qb.Where(sq.Eq{"student_id": filter.StudentID})
	}
	if filter.BranchID != "" {
		qb = qb.Where(sq.Eq{"branch_id": filter.BranchID})
	}
	query, args, err := qb.OrderBy("paid_at DESC").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []paymentRow
	if err = repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, queryErr(err, "filtering payments")
	}
	payments := make([]fee.Payment, len(rows))
	for i, row := range rows {
		payments[i] = row.toPayment()
	}
	return payments, nil
}
