package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/tmalela/elimisha/core/account"
	"github.com/tmalela/elimisha/core/fee"
	testutil "github.com/tmalela/elimisha/tests"
)

func Test_feeApi_feeStatus(t *testing.T) {
	app := setup(t)

	parent := testutil.CreateAccount(t, acctRepo, "Papa Mobutu", "papa@test.cd", "S3cret!Pwd", account.RoleParent, "inst1", "br1", true)
	otherParent := testutil.CreateAccount(t, acctRepo, "Other Papa", "other@test.cd", "S3cret!Pwd", account.RoleParent, "inst1", "br1", true)
	staff := testutil.CreateAccount(t, acctRepo, "Jane Staff", "jane@test.cd", "S3cret!Pwd", account.RoleStaff, "inst1", "br1", true)
	otherStaff := testutil.CreateAccount(t, acctRepo, "Far Staff", "far@test.cd", "S3cret!Pwd", account.RoleStaff, "inst1", "br2", true)
	instAdmin := testutil.CreateAccount(t, acctRepo, "Inst Admin", "inst@test.cd", "S3cret!Pwd", account.RoleInstitutionAdmin, "inst1", "", true)
	otherInstAdmin := testutil.CreateAccount(t, acctRepo, "Inst2 Admin", "inst2@test.cd", "S3cret!Pwd", account.RoleInstitutionAdmin, "inst2", "", true)
	companyAdmin := testutil.CreateAccount(t, acctRepo, "Boss", "boss@test.cd", "S3cret!Pwd", account.RoleCompanyAdmin, "", "", true)

	stu := testutil.CreateStudent(t, stuRepo, "Solo Student", "REG-001", "0990001111", "P5", "", parent.ID, "inst1", "br1", true)
	sibling := testutil.CreateStudent(t, stuRepo, "Sibling", "REG-002", "0990002222", "P3", "", otherParent.ID, "inst1", "br1", true)

	testutil.CreateStructure(t, feeRepo, "br1", "P5", map[string]float64{"Tuition": 1000, "Bus": 200})
	now := time.Now().UTC().Truncate(time.Second)
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Tuition", 400, fee.StatusApproved, now.Add(-time.Hour))
	testutil.CreatePayment(t, feeRepo, stu.ID, "br1", "Tuition", 300, fee.StatusPending, now)

	path := "/fees/" + stu.ID
	forbidden := marchallObj(t, httpErr{Message: "permission denied"})

	tests := []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "own record", path: path, token: getToken(t, studentPrincipal(stu)), wantCode: http.StatusOK},
		{
			name: "another student's record", path: path, token: getToken(t, studentPrincipal(sibling)),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "own child", path: path, token: getToken(t, accountPrincipal(parent)), wantCode: http.StatusOK},
		{
			name: "someone else's child", path: path, token: getToken(t, accountPrincipal(otherParent)),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "staff in branch", path: path, token: getToken(t, accountPrincipal(staff)), wantCode: http.StatusOK},
		{
			name: "staff in another branch", path: path, token: getToken(t, accountPrincipal(otherStaff)),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "institution admin", path: path, token: getToken(t, accountPrincipal(instAdmin)), wantCode: http.StatusOK},
		{
			name: "another institution's admin", path: path, token: getToken(t, accountPrincipal(otherInstAdmin)),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{name: "company admin", path: path, token: getToken(t, accountPrincipal(companyAdmin)), wantCode: http.StatusOK},
		{
			name: "unknown student", path: "/fees/nope", token: getToken(t, accountPrincipal(companyAdmin)),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Message: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}

			var sum fee.Summary
			if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
				t.Fatalf("unmarshalling Summary: %v", err)
			}
			if sum.FeeStructureTotal != 1200 {
				t.Errorf("feeStructureTotal = %v, want 1200", sum.FeeStructureTotal)
			}
			if sum.PaidTotal != 400 {
				t.Errorf("paidTotal = %v, want 400", sum.PaidTotal)
			}
			if sum.PendingAmount != 800 {
				t.Errorf("pendingAmount = %v, want 800", sum.PendingAmount)
			}
			if len(sum.Payments) != 1 { // pending payment excluded
				t.Errorf("len(payments) = %d, want 1", len(sum.Payments))
			}
		})
	}
}

func Test_feeApi_recordPayment(t *testing.T) {
	app := setup(t)

	parent := testutil.CreateAccount(t, acctRepo, "Papa Mobutu", "papa@test.cd", "S3cret!Pwd", account.RoleParent, "inst1", "br1", true)
	staff := testutil.CreateAccount(t, acctRepo, "Jane Staff", "jane@test.cd", "S3cret!Pwd", account.RoleStaff, "inst1", "br1", true)
	stu := testutil.CreateStudent(t, stuRepo, "Solo Student", "REG-001", "0990001111", "P5", "", parent.ID, "inst1", "br1", true)

	staffToken := getToken(t, accountPrincipal(staff))

	tests := []httpTest{
		{
			name: "auth required", wantCode: http.StatusUnauthorized,
			body:     marchallObj(t, fee.NewPayment{StudentID: stu.ID, Category: "Tuition", Amount: 100}),
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "staff role required", token: getToken(t, accountPrincipal(parent)), wantCode: http.StatusForbidden,
			body:     marchallObj(t, fee.NewPayment{StudentID: stu.ID, Category: "Tuition", Amount: 100}),
			wantData: marchallObj(t, httpErr{Message: "permission denied"}),
		},
		{
			name: "student cannot record", token: getToken(t, studentPrincipal(stu)), wantCode: http.StatusForbidden,
			body:     marchallObj(t, fee.NewPayment{StudentID: stu.ID, Category: "Tuition", Amount: 100}),
			wantData: marchallObj(t, httpErr{Message: "permission denied"}),
		},
		{
			name: "validation: missing fields", token: staffToken, wantCode: http.StatusBadRequest,
			body: marchallObj(t, fee.NewPayment{StudentID: stu.ID}),
			wantData: marchallObj(t, map[string]string{
				"category": "this field is required",
				"amount":   "this field is required",
			}),
		},
		{
			name: "validation: non-positive amount", token: staffToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, fee.NewPayment{StudentID: stu.ID, Category: "Tuition", Amount: -5}),
			wantData: marchallObj(t, map[string]string{"amount": "amount must be greater than 0"}),
		},
		{
			name: "unknown student", token: staffToken, wantCode: http.StatusNotFound,
			body:     marchallObj(t, fee.NewPayment{StudentID: "nope", Category: "Tuition", Amount: 100}),
			wantData: marchallObj(t, httpErr{Message: "not found"}),
		},
		{
			name: "ok", token: staffToken, wantCode: http.StatusCreated,
			body:     marchallObj(t, fee.NewPayment{StudentID: stu.ID, Category: "Tuition", Amount: 100, Mode: "cash"}),
			wantData: marchallObj(t, httpErr{Message: "Payment has been recorded."}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/fees", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// the recorded payment shows up in the student's fee status
	req, rec := newAuthRequest(http.MethodGet, "/fees/"+stu.ID, staffToken)
	app.ServeHTTP(rec, req)
	var sum fee.Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("unmarshalling Summary: %v", err)
	}
	if sum.PaidTotal != 100 {
		t.Errorf("paidTotal = %v, want 100", sum.PaidTotal)
	}
	if len(sum.Payments) != 1 {
		t.Fatalf("expected 1 payment; got %d", len(sum.Payments))
	}
	if p := sum.Payments[0]; p.ID == "" || p.Status != fee.StatusApproved || p.BranchID != "br1" {
		t.Errorf("payment = %+v; want approved payment in br1 with an ID", p)
	}
}
