package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmalela/elimisha/core/account"
	"github.com/tmalela/elimisha/core/fee"
	"github.com/tmalela/elimisha/core/student"
)

type feeApi struct {
	svc      fee.Service
	validate *validator.Validate
}

func registerFeeAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc fee.Service,
	students student.Repository,
	validate *validator.Validate,
) {
	api := feeApi{svc: svc, validate: validate}

	fg := g.Group("/fees", jwt)

	fg.POST("", api.recordPayment, roleMiddleware(
		account.RoleCompanyAdmin, account.RoleInstitutionAdmin, account.RoleBranchAdmin, account.RoleStaff,
	))
	fg.GET("/:studentId", api.feeStatus, studentScopeMiddleware(students))
}

// Handlers

func (api *feeApi) feeStatus(ctx echo.Context) error {
	cred, ok := ctx.Get(contextStudentKey).(student.Credential)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}

	summary, err := api.svc.ComputeFeeStatus(ctx.Request().Context(), cred.ID)
	if err != nil {
		if errors.Cause(err) == fee.ErrStudentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "computing fee status")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *feeApi) recordPayment(ctx echo.Context) error {
	var data fee.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if _, err := api.svc.RecordPayment(ctx.Request().Context(), data); err != nil {
		if errors.Cause(err) == fee.ErrStudentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusCreated, MessageResponse{Message: "Payment has been recorded."})
}
