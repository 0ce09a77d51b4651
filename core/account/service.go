package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/tmalela/elimisha/core"
	"github.com/tmalela/elimisha/core/student"
)

var (
	// errors
	ErrNotFound    = errors.New("account not found")
	ErrEmailExists = errors.New("an account with this email already exists")

	// ErrInvalidCredentials covers every authentication mismatch: unknown
	// email, wrong password, unknown register/phone pair, inactive account.
	// The message is deliberately uniform to resist enumeration.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStudentAccountInactive may name the problem: the student identity
	// was already confirmed by the register/phone pair.
	ErrStudentAccountInactive = errors.New("student account is inactive")

	ErrNoActiveDependents = errors.New("no active students found for this parent account")
	ErrMalformedLogin     = errors.New("invalid login credentials provided")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

type (
	// GetFilter fields are tried in order: ID, then Email.
	GetFilter struct {
		ID    string
		Email string
	}

	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedAccounts ...Account) error
		CreateAccount(ctx context.Context, acct Account) (Account, error)
		GetAccount(ctx context.Context, filter GetFilter) (Account, error)
		UpdateAccount(ctx context.Context, acct Account) (Account, error)
		// ConsumeResetToken atomically finds the account holding a live reset
		// token, installs the new password hash and clears the token pair.
		// Returns ErrNotFound when the token is unknown or expired; a raced
		// second consume of the same token must fail the same way.
		ConsumeResetToken(ctx context.Context, token string, hash []byte, now time.Time) (Account, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAccount) (Account, error)
		GetByID(ctx context.Context, id string) (Account, error)
		GetByEmail(ctx context.Context, email string) (Account, error)
		CheckEmailUniqueness(email string, excludedAccounts ...Account) error

		// Authenticate resolves a login payload to a Principal.
		// The student shape (registerNumber, phone) takes precedence when the
		// caller erroneously supplies both shapes.
		Authenticate(ctx context.Context, creds Credentials) (Principal, error)

		ChangePassword(ctx context.Context, data ChangePassword) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetPassword) error
	}

	service struct {
		repo     Repository
		students student.Repository
		mail     core.EmailService
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, students student.Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:     repo,
		students: students,
		mail:     mailSvc,
		conf:     conf,
	}
}

func (svc *service) Create(ctx context.Context, na NewAccount) (Account, error) {
	now := time.Now().UTC()
	acct := Account{
		Name:          na.Name,
		Email:         null.NewString(na.Email, na.Email != ""),
		Phone:         null.NewString(na.Phone, na.Phone != ""),
		Role:          na.Role,
		InstitutionID: null.NewString(na.InstitutionID, na.InstitutionID != ""),
		BranchID:      null.NewString(na.BranchID, na.BranchID != ""),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := acct.SetPassword(na.Password); err != nil {
		return Account{}, err
	}
	return svc.repo.CreateAccount(ctx, acct)
}

func (svc *service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

func (svc *service) CheckEmailUniqueness(email string, excludedAccounts ...Account) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, excludedAccounts...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Authenticate(ctx context.Context, creds Credentials) (Principal, error) {
	creds.Clean()

	switch {
	case creds.IsStudentLogin():
		return svc.authenticateStudent(ctx, creds.RegisterNumber, creds.Phone)
	case creds.IsCredentialLogin():
		return svc.authenticateAccount(ctx, creds.Email, creds.Password)
	default:
		return Principal{}, ErrMalformedLogin
	}
}

func (svc *service) authenticateStudent(ctx context.Context, regNum, phone string) (Principal, error) {
	cred, err := svc.students.GetCredential(ctx, student.GetFilter{
		RegistrationNumber: regNum,
		Phone:              phone,
	})
	if err != nil || !cred.IsActive {
		if err != nil && err != student.ErrNotFound {
			return Principal{}, err
		}
		// do not distinguish "wrong register number" from "wrong phone"
		return Principal{}, ErrInvalidCredentials
	}

	if !cred.AccountID.Valid {
		// degenerate session issued directly from the student identity
		return Principal{
			ID:            cred.ID,
			Name:          cred.Name,
			Role:          RoleStudent,
			InstitutionID: cred.InstitutionID,
			BranchID:      cred.BranchID,
			StudentID:     null.StringFrom(cred.ID),
		}, nil
	}

	acct, err := svc.repo.GetAccount(ctx, GetFilter{ID: cred.AccountID.String})
	if err != nil || !acct.IsActive {
		if err != nil && err != ErrNotFound {
			return Principal{}, err
		}
		return Principal{}, ErrStudentAccountInactive
	}
	p := principalFromAccount(acct)
	p.StudentID = null.StringFrom(cred.ID)
	return p, nil
}

func (svc *service) authenticateAccount(ctx context.Context, email, password string) (Principal, error) {
	acct, err := svc.repo.GetAccount(ctx, GetFilter{Email: email})
	if err != nil || !acct.IsActive {
		if err != nil && err != ErrNotFound {
			return Principal{}, err
		}
		return Principal{}, ErrInvalidCredentials
	}
	if err = acct.CheckPassword(password); err != nil {
		// identical message to "no match": do not leak which check failed
		return Principal{}, ErrInvalidCredentials
	}

	if acct.IsParent() {
		active := true
		deps, err := svc.students.FilterCredentials(ctx, student.QueryFilter{
			ParentID: acct.ID,
			IsActive: &active,
		})
		if err != nil {
			return Principal{}, err
		}
		if len(deps) == 0 {
			return Principal{}, ErrNoActiveDependents
		}
	}
	return principalFromAccount(acct), nil
}

func principalFromAccount(acct Account) Principal {
	return Principal{
		ID:            acct.ID,
		Name:          acct.Name,
		Email:         acct.Email,
		Role:          acct.Role,
		InstitutionID: acct.InstitutionID,
		BranchID:      acct.BranchID,
	}
}

func (svc *service) ChangePassword(ctx context.Context, data ChangePassword) error {
	acct, err := svc.repo.GetAccount(ctx, GetFilter{ID: data.UserID})
	if err != nil || !acct.IsActive {
		if err != nil && err != ErrNotFound {
			return err
		}
		return ErrInvalidCredentials
	}
	if err = acct.CheckPassword(data.CurrentPassword); err != nil {
		return ErrInvalidCredentials
	}
	if err = acct.SetPassword(data.NewPassword); err != nil {
		return err
	}
	acct.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acct)
	return err
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	acct, err := svc.repo.GetAccount(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
	if err != nil {
		return err
	}
	if !acct.IsActive {
		// same outward behavior as an unknown email
		return ErrNotFound
	}

	token, err := MakeResetToken()
	if err != nil {
		return err
	}
	acct.ResetToken = null.StringFrom(token)
	acct.ResetTokenExpiry = null.TimeFrom(NowFunc().Add(svc.conf.PasswordResetTimeout).UTC())
	acct.UpdatedAt = time.Now().UTC()
	if acct, err = svc.repo.UpdateAccount(ctx, acct); err != nil {
		return err
	}

	svc.sendPasswordResetMail(acct, token)
	return nil
}

func (svc *service) sendPasswordResetMail(acct Account, token string) {
	url := fmt.Sprintf("%s/reset-password/%s", svc.conf.FrontendBaseURL, token)
	mins := int(svc.conf.PasswordResetTimeout / time.Minute)
	svc.mail.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: acct.Name, Address: acct.Email.String}},
		Subject: "Password Reset",
		BodyStr: fmt.Sprintf(
			"Hi %s,\n\n"+
				"A password reset was requested for your account. Follow the link below to choose a new password:\n\n"+
				"%s\n\n"+
				"The link expires in %d minutes. If you did not request this, you can safely ignore this email.",
			acct.Name, url, mins,
		),
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetPassword) error {
	acct := Account{}
	if err := acct.SetPassword(data.Password); err != nil {
		return err
	}
	_, err := svc.repo.ConsumeResetToken(ctx, data.Token, acct.PasswordHash, NowFunc().UTC())
	if err != nil {
		if err == ErrNotFound {
			return ErrInvalidResetToken
		}
		return err
	}
	return nil
}
