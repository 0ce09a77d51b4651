package account_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/tmalela/elimisha/core/account"
	"github.com/tmalela/elimisha/core/student"
	emailsvc "github.com/tmalela/elimisha/services/email"
	dummydb "github.com/tmalela/elimisha/storage/database/dummy"
	testutil "github.com/tmalela/elimisha/tests"
)

func setup(t *testing.T) (account.Service, account.Repository, student.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	acctRepo := dummydb.NewAccountRepository(db)
	stuRepo := dummydb.NewStudentRepository(db)
	conf := testutil.NewConfig()
	emailsvc.ClearSentMessages()
	svc := account.NewService(acctRepo, stuRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	return svc, acctRepo, stuRepo
}

func TestService_Authenticate(t *testing.T) {
	svc, acctRepo, stuRepo := setup(t)
	ctx := context.Background()

	testutil.CreateAccount(t, acctRepo, "Jane Staff", "jane@test.cd", "S3cret!Pwd", account.RoleStaff, "inst1", "br1", true)
	testutil.CreateAccount(t, acctRepo, "Gone Staff", "gone@test.cd", "S3cret!Pwd", account.RoleStaff, "inst1", "br1", false)
	inactiveLink := testutil.CreateAccount(t, acctRepo, "Linked Off", "off@test.cd", "S3cret!Pwd", account.RoleParent, "inst1", "br1", false)
	parent := testutil.CreateAccount(t, acctRepo, "Papa Mobutu", "papa@test.cd", "S3cret!Pwd", account.RoleParent, "inst1", "br1", true)
	lonelyParent := testutil.CreateAccount(t, acctRepo, "No Kids", "nokids@test.cd", "S3cret!Pwd", account.RoleParent, "inst1", "br1", true)

	free := testutil.CreateStudent(t, stuRepo, "Solo Student", "REG-001", "0990001111", "P5", "", parent.ID, "inst1", "br1", true)
	testutil.CreateStudent(t, stuRepo, "Benched", "REG-002", "0990002222", "P5", "", parent.ID, "inst1", "br1", false)
	testutil.CreateStudent(t, stuRepo, "Linked Student", "REG-003", "0990003333", "P6", inactiveLink.ID, "", "inst1", "br1", true)
	// lonelyParent's only dependent is inactive
	testutil.CreateStudent(t, stuRepo, "Left School", "REG-004", "0990004444", "P6", "", lonelyParent.ID, "inst1", "br1", false)

	tests := []struct {
		name     string
		creds    account.Credentials
		wantErr  error
		wantRole string
		wantStu  string
	}{
		{
			name:     "student login: no linked account",
			creds:    account.Credentials{RegisterNumber: "REG-001", Phone: "0990001111"},
			wantRole: account.RoleStudent,
			wantStu:  free.ID,
		},
		{
			name: "student shape wins when both shapes supplied",
			creds: account.Credentials{
				RegisterNumber: "REG-001", Phone: "0990001111",
				Email: "jane@test.cd", Password: "wrong",
			},
			wantRole: account.RoleStudent,
			wantStu:  free.ID,
		},
		{
			name:    "student login: unknown pair",
			creds:   account.Credentials{RegisterNumber: "REG-001", Phone: "0990009999"},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name:    "student login: inactive student",
			creds:   account.Credentials{RegisterNumber: "REG-002", Phone: "0990002222"},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name:    "student login: linked account inactive",
			creds:   account.Credentials{RegisterNumber: "REG-003", Phone: "0990003333"},
			wantErr: account.ErrStudentAccountInactive,
		},
		{
			name:     "email login: staff ok",
			creds:    account.Credentials{Email: "jane@test.cd", Password: "S3cret!Pwd"},
			wantRole: account.RoleStaff,
		},
		{
			name:    "email login: wrong password",
			creds:   account.Credentials{Email: "jane@test.cd", Password: "nope"},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name:    "email login: unknown email",
			creds:   account.Credentials{Email: "who@test.cd", Password: "S3cret!Pwd"},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name:    "email login: inactive account",
			creds:   account.Credentials{Email: "gone@test.cd", Password: "S3cret!Pwd"},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name:     "email login: parent with active dependent",
			creds:    account.Credentials{Email: "papa@test.cd", Password: "S3cret!Pwd"},
			wantRole: account.RoleParent,
		},
		{
			name:    "email login: parent without active dependents",
			creds:   account.Credentials{Email: "nokids@test.cd", Password: "S3cret!Pwd"},
			wantErr: account.ErrNoActiveDependents,
		},
		{
			name:    "malformed: neither shape",
			creds:   account.Credentials{RegisterNumber: "REG-001", Password: "S3cret!Pwd"},
			wantErr: account.ErrMalformedLogin,
		},
		{
			name:    "malformed: empty payload",
			creds:   account.Credentials{},
			wantErr: account.ErrMalformedLogin,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Authenticate(ctx, tt.creds)
			if err != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if p.Role != tt.wantRole {
				t.Errorf("Authenticate() role = %v, want %v", p.Role, tt.wantRole)
			}
			if tt.wantStu != "" && p.StudentID.String != tt.wantStu {
				t.Errorf("Authenticate() studentID = %v, want %v", p.StudentID.String, tt.wantStu)
			}
		})
	}

	// a student login through a linked active account carries the account role
	linkAcct := testutil.CreateAccount(t, acctRepo, "Mama Linked", "mama@test.cd", "S3cret!Pwd", account.RoleParent, "inst1", "br1", true)
	relinked := testutil.CreateStudent(t, stuRepo, "Relinked", "REG-005", "0990005555", "P6", linkAcct.ID, linkAcct.ID, "inst1", "br1", true)
	p, err := svc.Authenticate(ctx, account.Credentials{RegisterNumber: "REG-005", Phone: "0990005555"})
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if p.ID != linkAcct.ID || p.Role != account.RoleParent || p.StudentID.String != relinked.ID {
		t.Errorf("Authenticate() principal = %+v, want linked account with studentID %s", p, relinked.ID)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, acctRepo, _ := setup(t)
	ctx := context.Background()

	acct := testutil.CreateAccount(t, acctRepo, "Jane Staff", "jane@test.cd", "Old!Passw0rd", account.RoleStaff, "inst1", "br1", true)

	tests := []struct {
		name    string
		data    account.ChangePassword
		wantErr error
	}{
		{
			name:    "unknown user",
			data:    account.ChangePassword{UserID: "nope", CurrentPassword: "Old!Passw0rd", NewPassword: "New!Passw0rd"},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name:    "wrong current password",
			data:    account.ChangePassword{UserID: acct.ID, CurrentPassword: "hacker", NewPassword: "New!Passw0rd"},
			wantErr: account.ErrInvalidCredentials,
		},
		{
			name: "ok",
			data: account.ChangePassword{UserID: acct.ID, CurrentPassword: "Old!Passw0rd", NewPassword: "New!Passw0rd"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.ChangePassword(ctx, tt.data); err != tt.wantErr {
				t.Fatalf("ChangePassword() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	// the new password is live, the old one is not
	if _, err := svc.Authenticate(ctx, account.Credentials{Email: "jane@test.cd", Password: "New!Passw0rd"}); err != nil {
		t.Errorf("Authenticate() with new password failed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, account.Credentials{Email: "jane@test.cd", Password: "Old!Passw0rd"}); err != account.ErrInvalidCredentials {
		t.Errorf("Authenticate() with old password error = %v, want %v", err, account.ErrInvalidCredentials)
	}
}

func TestService_RequestPasswordReset(t *testing.T) {
	svc, acctRepo, _ := setup(t)
	ctx := context.Background()

	acct := testutil.CreateAccount(t, acctRepo, "Jane Staff", "jane@test.cd", "S3cret!Pwd", account.RoleStaff, "inst1", "br1", true)
	testutil.CreateAccount(t, acctRepo, "Gone Staff", "gone@test.cd", "S3cret!Pwd", account.RoleStaff, "inst1", "br1", false)

	if err := svc.RequestPasswordReset(ctx, "who@test.cd"); err != account.ErrNotFound {
		t.Errorf("RequestPasswordReset() unknown email error = %v, want %v", err, account.ErrNotFound)
	}
	if err := svc.RequestPasswordReset(ctx, "gone@test.cd"); err != account.ErrNotFound {
		t.Errorf("RequestPasswordReset() inactive account error = %v, want %v", err, account.ErrNotFound)
	}
	if len(emailsvc.SentMessages) != 0 {
		t.Fatalf("no mail should be sent on failed requests; got %d", len(emailsvc.SentMessages))
	}

	if err := svc.RequestPasswordReset(ctx, "jane@test.cd"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}

	saved, err := acctRepo.GetAccount(ctx, account.GetFilter{ID: acct.ID})
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if !saved.ResetToken.Valid || saved.ResetToken.String == "" {
		t.Error("reset token was not persisted")
	}
	if !saved.ResetTokenExpiry.Valid || !saved.ResetTokenExpiry.Time.After(time.Now().UTC()) {
		t.Error("reset token expiry was not set in the future")
	}

	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("expected 1 sent mail; got %d", len(emailsvc.SentMessages))
	}
	mail := emailsvc.SentMessages[0]
	if mail.To[0].Address != "jane@test.cd" {
		t.Errorf("mail sent to %s, want jane@test.cd", mail.To[0].Address)
	}
	if !strings.Contains(mail.TextContent, "/reset-password/"+saved.ResetToken.String) {
		t.Error("mail body does not contain the reset URL")
	}
}

func TestService_ResetPassword(t *testing.T) {
	svc, acctRepo, _ := setup(t)
	ctx := context.Background()

	acct := testutil.CreateAccount(t, acctRepo, "Jane Staff", "jane@test.cd", "Old!Passw0rd", account.RoleStaff, "inst1", "br1", true)
	if err := svc.RequestPasswordReset(ctx, "jane@test.cd"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	saved, err := acctRepo.GetAccount(ctx, account.GetFilter{ID: acct.ID})
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	token := saved.ResetToken.String

	if err = svc.ResetPassword(ctx, account.ResetPassword{Token: "bogus", Password: "New!Passw0rd"}); err != account.ErrInvalidResetToken {
		t.Errorf("ResetPassword() bogus token error = %v, want %v", err, account.ErrInvalidResetToken)
	}

	if err = svc.ResetPassword(ctx, account.ResetPassword{Token: token, Password: "New!Passw0rd"}); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if _, err = svc.Authenticate(ctx, account.Credentials{Email: "jane@test.cd", Password: "New!Passw0rd"}); err != nil {
		t.Errorf("Authenticate() with reset password failed: %v", err)
	}

	// the token is single-use
	if err = svc.ResetPassword(ctx, account.ResetPassword{Token: token, Password: "Again!Passw0rd"}); err != account.ErrInvalidResetToken {
		t.Errorf("ResetPassword() reused token error = %v, want %v", err, account.ErrInvalidResetToken)
	}

	// an expired token is rejected
	account.NowFunc = func() time.Time { return time.Now().Add(-24 * time.Hour) }
	if err = svc.RequestPasswordReset(ctx, "jane@test.cd"); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	account.NowFunc = time.Now // reset
	saved, err = acctRepo.GetAccount(ctx, account.GetFilter{ID: acct.ID})
	if err != nil {
		t.Fatalf("GetAccount() failed: %v", err)
	}
	if err = svc.ResetPassword(ctx, account.ResetPassword{Token: saved.ResetToken.String, Password: "Late!Passw0rd"}); err != account.ErrInvalidResetToken {
		t.Errorf("ResetPassword() expired token error = %v, want %v", err, account.ErrInvalidResetToken)
	}
}
