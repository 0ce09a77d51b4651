package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmalela/elimisha/core"
	"github.com/tmalela/elimisha/core/account"
)

type accountApi struct {
	svc        account.Service
	conf       *core.Config
	validate   *validator.Validate
	translator ut.Translator
}

func registerAccountAPI(
	g *echo.Group,
	svc account.Service,
	conf *core.Config,
	validate *validator.Validate,
	translator ut.Translator,
) {
	api := accountApi{
		svc:        svc,
		conf:       conf,
		validate:   validate,
		translator: translator,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	// TODO: rate limit `/forgot-password` & `/reset-password`
	ag.POST("/login", api.login)
	ag.POST("/change-password", api.changePassword)
	ag.POST("/forgot-password", api.forgotPassword)
	ag.POST("/reset-password/:token", api.resetPassword)
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data account.Credentials
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	principal, err := api.svc.Authenticate(ctx.Request().Context(), data)
	if err != nil {
		switch errors.Cause(err) {
		// all login failures are 400s; the frontend surfaces the message as-is
		case account.ErrInvalidCredentials, account.ErrMalformedLogin,
			account.ErrStudentAccountInactive, account.ErrNoActiveDependents:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errors.Wrap(err, "authenticating")
	}

	token, err := GenerateToken(api.conf, PrincipalClaims(api.conf, principal))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, User: newPrincipalView(principal)})
}

func (api *accountApi) changePassword(ctx echo.Context) error {
	var data account.ChangePassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ChangePassword(ctx.Request().Context(), data); err != nil {
		if errors.Cause(err) == account.ErrInvalidCredentials {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password has been changed."})
}

func (api *accountApi) forgotPassword(ctx echo.Context) error {
	var data ForgotPasswordRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ForgotPasswordRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	// an unknown or inactive email gets the same neutral answer as a known
	// one; only infrastructure failures surface, as a generic 500
	if err := api.svc.RequestPasswordReset(ctx.Request().Context(), data.Email); !(err == nil || errors.Cause(err) == account.ErrNotFound) {
		return errors.Wrap(err, "requesting password reset")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{
		Message: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})
}

func (api *accountApi) resetPassword(ctx echo.Context) error {
	var data account.ResetPassword
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResetPassword")
	}
	data.Token = ctx.Param("token")
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if err := api.svc.ResetPassword(ctx.Request().Context(), data); err != nil {
		if errors.Cause(err) == account.ErrInvalidResetToken {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return errors.Wrap(err, "resetting password")
	}
	return ctx.JSON(http.StatusOK, MessageResponse{Message: "Password has been reset with the new password."})
}

type (
	// PrincipalView is the login response's user object. Key names are the
	// frontend's contract; optional fields serialize as explicit nulls.
	PrincipalView struct {
		ID            string  `json:"id"`
		Name          string  `json:"name"`
		Email         *string `json:"email"`
		Role          string  `json:"role"`
		StudentID     *string `json:"student_id"`
		InstitutionID *string `json:"institution_id"`
		BranchID      *string `json:"branch_id"`
	}

	LoginResponse struct {
		Token string        `json:"token"`
		User  PrincipalView `json:"user"`
	}

	ForgotPasswordRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	MessageResponse struct {
		Message string `json:"message"`
	}
)

func newPrincipalView(p account.Principal) PrincipalView {
	return PrincipalView{
		ID:            p.ID,
		Name:          p.Name,
		Email:         p.Email.Ptr(),
		Role:          p.Role,
		StudentID:     p.StudentID.Ptr(),
		InstitutionID: p.InstitutionID.Ptr(),
		BranchID:      p.BranchID.Ptr(),
	}
}

func (fr *ForgotPasswordRequest) Validate(validate *validator.Validate) error {
	fr.Email = core.CleanString(fr.Email, true /* lower */)
	return validate.Struct(fr)
}
