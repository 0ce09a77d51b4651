package student

import (
	"context"
	"errors"
	"time"

	"github.com/volatiletech/null/v8"
)

var ErrNotFound = errors.New("student not found")

// Credential is the authentication-relevant subset of a student record:
// the (registration number, phone) pair a student signs in with, plus the
// tenant scope and optional links to a login account and a parent account.
type Credential struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	RegistrationNumber string      `json:"registration_number"`
	Phone              string      `json:"phone"`
	Class              string      `json:"class"` // class label, not numeric ("LKG" is valid)
	IsActive           bool        `json:"is_active"`
	AccountID          null.String `json:"account_id"`
	ParentID           null.String `json:"parent_id"`
	InstitutionID      null.String `json:"institution_id"`
	BranchID           null.String `json:"branch_id"`
	CreatedAt          time.Time   `json:"created_at"` // UTC
	UpdatedAt          time.Time   `json:"updated_at"` // UTC
}

// GetFilter fields are tried in order: ID; then (RegistrationNumber, Phone).
type GetFilter struct {
	ID                 string
	RegistrationNumber string
	Phone              string
}

// QueryFilter applies AND on set fields.
type QueryFilter struct {
	ParentID string
	IsActive *bool
}

type Repository interface {
	CreateCredential(ctx context.Context, cred Credential) (Credential, error)
	GetCredential(ctx context.Context, filter GetFilter) (Credential, error)
	FilterCredentials(ctx context.Context, filter QueryFilter) ([]Credential, error)
	UpdateCredential(ctx context.Context, cred Credential) (Credential, error)
}
