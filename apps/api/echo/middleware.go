package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/tmalela/elimisha/core/account"
	"github.com/tmalela/elimisha/core/student"
)

const contextStudentKey = "student"

// roleMiddleware only lets principals holding one of the given roles through.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claimsHaveAnyRole(claims, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// studentScopeMiddleware resolves the :studentId route param and only lets
// principals whose tenant scope covers that student through. The resolved
// credential is stashed in the context for the handler.
//
// Company admins see everything, institution admins their institution,
// branch admins and staff their branch, parents their own children and
// students only themselves.
func studentScopeMiddleware(students student.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			cred, err := students.GetCredential(
				ctx.Request().Context(),
				student.GetFilter{ID: ctx.Param("studentId")},
			)
			if err != nil {
				if errors.Cause(err) == student.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}

			if !claimsCoverStudent(claims, cred) {
				return errHttpForbidden
			}
			ctx.Set(contextStudentKey, cred)
			return next(ctx)
		}
	}
}

func claimsCoverStudent(claims Claims, cred student.Credential) bool {
	switch claims.Role {
	case account.RoleCompanyAdmin:
		return true
	case account.RoleInstitutionAdmin:
		return claims.InstitutionID != "" && claims.InstitutionID == cred.InstitutionID.String
	case account.RoleBranchAdmin, account.RoleStaff:
		return claims.BranchID != "" && claims.BranchID == cred.BranchID.String
	case account.RoleParent:
		return claims.Subject == cred.ParentID.String
	case account.RoleStudent:
		return claims.StudentID == cred.ID
	}
	return false
}
