package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/tmalela/elimisha/core"
)

// Roles
const (
	RoleCompanyAdmin     = "company_admin"
	RoleInstitutionAdmin = "institution_admin"
	RoleBranchAdmin      = "branch_admin"
	RoleStaff            = "staff"
	RoleParent           = "parent"

	// RoleStudent is never stored on an Account; it is the role of a session
	// issued directly from a student credential.
	RoleStudent = "student"
)

var (
	AdminRoles = []string{RoleCompanyAdmin, RoleInstitutionAdmin, RoleBranchAdmin}
	AllRoles   = []string{RoleCompanyAdmin, RoleInstitutionAdmin, RoleBranchAdmin, RoleStaff, RoleParent}
)

// Account represents any human who can log in with email and password:
// company/institution/branch admins, staff and parents.
type Account struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Email         null.String `json:"email"` // unique when present
	Phone         null.String `json:"phone"`
	Role          string      `json:"role"`
	InstitutionID null.String `json:"institution_id"` // absent for company_admin
	BranchID      null.String `json:"branch_id"`
	IsActive      bool        `json:"is_active"`
	PasswordHash  []byte      `json:"-"`

	// reset token pair: both set or both clear
	ResetToken       null.String `json:"-"`
	ResetTokenExpiry null.Time   `json:"-"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a *Account) IsAdmin() bool {
	for _, role := range AdminRoles {
		if a.Role == role {
			return true
		}
	}
	return false
}

func (a *Account) IsParent() bool { return a.Role == RoleParent }

// Principal is a resolved identity: who authenticated, with what role and
// within which tenant scope. For student logins without a linked Account,
// the credential itself is the principal and Email stays null.
type Principal struct {
	ID            string
	Name          string
	Email         null.String
	Role          string
	InstitutionID null.String
	BranchID      null.String
	StudentID     null.String
}

// Credentials is the login payload. Exactly one of the two shapes must be
// supplied; the student shape takes precedence when both are present.
type Credentials struct {
	RegisterNumber string `json:"registerNumber"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Password       string `json:"password"`
}

func (c *Credentials) Clean() {
	c.RegisterNumber = core.CleanString(c.RegisterNumber)
	c.Phone = core.CleanString(c.Phone)
	c.Email = core.CleanString(c.Email, true /* lower */)
}

// IsStudentLogin reports whether the student shape was supplied.
func (c Credentials) IsStudentLogin() bool {
	return c.RegisterNumber != "" && c.Phone != ""
}

// IsCredentialLogin reports whether the email+password shape was supplied.
func (c Credentials) IsCredentialLogin() bool {
	return c.Email != "" && c.Password != ""
}

// NewAccount contains information needed to create a new Account.
// Accounts are created by admin-tier actors (ops CLI, provisioning).
type NewAccount struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone"`
	Role          string `json:"role" validate:"required,accountrole"`
	InstitutionID string `json:"institution_id"`
	BranchID      string `json:"branch_id"`
	Password      string `json:"password" validate:"required"`
}

func (na *NewAccount) Validate(validate *validator.Validate, svc Service) error {
	na.Name = core.CleanString(na.Name)
	na.Email = core.CleanString(na.Email, true /* lower */)

	if err := validate.Struct(na); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(na.Email)
}

// ChangePassword is the self-service password change payload. The current
// password is the credential; no session is required.
type ChangePassword struct {
	UserID          string `json:"userId" validate:"required"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

func (cp *ChangePassword) Validate(validate *validator.Validate) error {
	cp.UserID = core.CleanString(cp.UserID)
	return validate.Struct(cp)
}

// ResetPassword carries a reset token (from the emailed URL) and the new
// password. Knowledge of the old password is not required.
type ResetPassword struct {
	Token    string `json:"-"`
	Password string `json:"password" validate:"required"`
}

func (rp *ResetPassword) Validate(validate *validator.Validate) error {
	rp.Token = core.CleanString(rp.Token)
	return validate.Struct(rp)
}
