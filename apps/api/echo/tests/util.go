package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	. "github.com/tmalela/elimisha/apps/api/echo"
	"github.com/tmalela/elimisha/core"
	"github.com/tmalela/elimisha/core/account"
	"github.com/tmalela/elimisha/core/fee"
	"github.com/tmalela/elimisha/core/student"
	emailsvc "github.com/tmalela/elimisha/services/email"
	dummydb "github.com/tmalela/elimisha/storage/database/dummy"
	testutil "github.com/tmalela/elimisha/tests"
)

var (
	conf     *core.Config
	acctRepo account.Repository
	stuRepo  student.Repository
	feeRepo  fee.Repository

	errMissingToken = httpErr{Message: "missing or malformed jwt"}
)

func setup(t *testing.T) Server {
	t.Helper()

	// set up DB & repos
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	acctRepo = dummydb.NewAccountRepository(db)
	stuRepo = dummydb.NewStudentRepository(db)
	feeRepo = dummydb.NewFeeRepository(db)

	// set up services
	conf = testutil.NewConfig()
	emailsvc.ClearSentMessages()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	acctSvc := account.NewService(acctRepo, stuRepo, mailSvc, conf)
	feeSvc := fee.NewService(feeRepo, stuRepo)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)

	// set up server
	return NewServer(
		ServerDeps{
			Conf:       conf,
			Logger:     testutil.NewLogger(),
			AccountSvc: acctSvc,
			FeeSvc:     feeSvc,
			Students:   stuRepo,
			Validate:   validate,
			Translator: translator,
		},
	)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Message string `json:"message"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, p account.Principal) string {
	t.Helper()
	token, err := GenerateToken(conf, PrincipalClaims(conf, p))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func accountPrincipal(acct account.Account) account.Principal {
	return account.Principal{
		ID:            acct.ID,
		Name:          acct.Name,
		Email:         acct.Email,
		Role:          acct.Role,
		InstitutionID: acct.InstitutionID,
		BranchID:      acct.BranchID,
	}
}

func studentPrincipal(cred student.Credential) account.Principal {
	return account.Principal{
		ID:            cred.ID,
		Name:          cred.Name,
		Role:          account.RoleStudent,
		InstitutionID: cred.InstitutionID,
		BranchID:      cred.BranchID,
		StudentID:     null.StringFrom(cred.ID),
	}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if l1, ok := j1.([]interface{}); ok {
		if l2, ok := j2.([]interface{}); ok {
			return assert.ElementsMatch(t, l1, l2), nil
		}
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
