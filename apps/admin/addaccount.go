package main

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/tmalela/elimisha/core"
	"github.com/tmalela/elimisha/core/account"
)

// addAccount updates or creates an account.Account
func (cli *commandLine) addAccount(name, email, role, institutionID, branchID, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	now := time.Now().UTC()

	acct, err := cli.acctRepo.GetAccount(ctx, account.GetFilter{Email: email})
	if err != nil {
		if err != account.ErrNotFound {
			return err
		}
		acct = account.Account{
			Email:     null.StringFrom(email),
			CreatedAt: now,
		}
	}
	acct.Name = name
	acct.Role = role
	acct.InstitutionID = null.NewString(institutionID, institutionID != "")
	acct.BranchID = null.NewString(branchID, branchID != "")
	acct.IsActive = true
	acct.UpdatedAt = now
	if err = acct.SetPassword(pwd); err != nil {
		return err
	}

	if acct.ID == "" {
		_, err = cli.acctRepo.CreateAccount(ctx, acct)
	} else {
		_, err = cli.acctRepo.UpdateAccount(ctx, acct)
	}
	return err
}
