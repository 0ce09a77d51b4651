package testutil

import (
	"context"
	"log"
	"net/mail"
	"os"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/tmalela/elimisha/core"
	"github.com/tmalela/elimisha/core/account"
	"github.com/tmalela/elimisha/core/fee"
	"github.com/tmalela/elimisha/core/student"
)

// NewConfig returns a config suitable for tests: no external services, short
// timeouts, deterministic secrets.
func NewConfig() *core.Config {
	conf := &core.Config{
		Debug:           true,
		TestMode:        true,
		Env:             "TEST",
		Build:           "test",
		AppName:         "Elimisha",
		SecretKey:       "+=[TestSecretKey]=+",
		FrontendBaseURL: "http://localhost:3000",
		DefaultFromEmail: mail.Address{
			Name:    "Elimisha",
			Address: "noreply@localhost",
		},
		PasswordResetTimeout: 15 * time.Minute,
	}
	conf.Server.JWTExpirationDelta = 1 * time.Hour
	conf.Server.ShutdownTimeout = 1 * time.Second
	return conf
}

func CreateAccount(
	t *testing.T,
	repo account.Repository,
	name, email, pwd, role string,
	institutionID, branchID string,
	isActive bool,
) account.Account {
	t.Helper()
	now := time.Now().UTC()
	acct := account.Account{
		Name:          name,
		Email:         null.NewString(email, email != ""),
		Role:          role,
		InstitutionID: null.NewString(institutionID, institutionID != ""),
		BranchID:      null.NewString(branchID, branchID != ""),
		IsActive:      isActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if pwd != "" {
		if err := acct.SetPassword(pwd); err != nil {
			t.Fatalf("CreateAccount() failed: %v", err)
		}
	}
	acct, err := repo.CreateAccount(context.Background(), acct)
	if err != nil {
		t.Fatalf("CreateAccount() failed: %v", err)
	}
	return acct
}

func CreateStudent(
	t *testing.T,
	repo student.Repository,
	name, regNum, phone, class string,
	accountID, parentID, institutionID, branchID string,
	isActive bool,
) student.Credential {
	t.Helper()
	now := time.Now().UTC()
	cred, err := repo.CreateCredential(context.Background(), student.Credential{
		Name:               name,
		RegistrationNumber: regNum,
		Phone:              phone,
		Class:              class,
		IsActive:           isActive,
		AccountID:          null.NewString(accountID, accountID != ""),
		ParentID:           null.NewString(parentID, parentID != ""),
		InstitutionID:      null.NewString(institutionID, institutionID != ""),
		BranchID:           null.NewString(branchID, branchID != ""),
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return cred
}

func CreateStructure(
	t *testing.T,
	repo fee.Repository,
	branchID, class string,
	categories map[string]float64,
) fee.Structure {
	t.Helper()
	now := time.Now().UTC()
	fs, err := repo.CreateStructure(context.Background(), fee.Structure{
		BranchID:   branchID,
		Class:      class,
		Categories: categories,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("CreateStructure() failed: %v", err)
	}
	return fs
}

func CreatePayment(
	t *testing.T,
	repo fee.Repository,
	studentID, branchID, category string,
	amount float64,
	status string,
	paidAt time.Time,
) fee.Payment {
	t.Helper()
	p, err := repo.CreatePayment(context.Background(), fee.Payment{
		StudentID: studentID,
		BranchID:  branchID,
		Category:  category,
		Amount:    amount,
		Status:    status,
		PaidAt:    paidAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return p
}

// Logger is a core.Logger that writes to stdout; Fatal does not exit.
type Logger struct {
	std *log.Logger
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{std: log.New(os.Stdout, "TEST : ", log.LstdFlags)}
}

func (l Logger) log(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l Logger) Debug(msg string, args ...interface{}) { l.log(msg, args) }
func (l Logger) Info(msg string, args ...interface{})  { l.log(msg, args) }
func (l Logger) Warn(msg string, args ...interface{})  { l.log(msg, args) }
func (l Logger) Error(msg string, args ...interface{}) { l.log(msg, args) }
func (l Logger) Fatal(msg string, args ...interface{}) { l.log(msg, args) }
