package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gymdesk/internal/domain/account"
)

// AccountStoreForCreate defines the store interface needed by CreateAccount.
type AccountStoreForCreate interface {
	Save(ctx context.Context, a *account.Account) error
	CountByRole(ctx context.Context, role string) (int, error)
}

// CreateAccountInput carries input for the orchestrator.
type CreateAccountInput struct {
	Email    string
	Password string
	Role     string
	MemberID int64 // required for member accounts
}

// CreateAccountDeps holds dependencies for CreateAccount.
type CreateAccountDeps struct {
	AccountStore AccountStoreForCreate
	MemberStore  MemberLookup // optional: verifies MemberID when set
	Now          func() time.Time
}

// ExecuteCreateAccount coordinates account creation.
// PRE: Valid email, password >= 12 chars, valid role
// POST: Account created with hashed password
// INVARIANT: Email must be unique (enforced by store)
func ExecuteCreateAccount(ctx context.Context, input CreateAccountInput, deps CreateAccountDeps) (account.Account, error) {
	acct := account.Account{
		Email:     normalizeEmail(input.Email),
		Role:      input.Role,
		MemberID:  input.MemberID,
		CreatedAt: nowFrom(deps.Now),
	}
	if err := acct.Validate(); err != nil {
		return account.Account{}, err
	}
	if acct.MemberID > 0 && deps.MemberStore != nil {
		if _, err := deps.MemberStore.GetByID(ctx, acct.MemberID); err != nil {
			return account.Account{}, err
		}
	}
	if err := acct.SetPassword(input.Password); err != nil {
		return account.Account{}, err
	}
	if err := deps.AccountStore.Save(ctx, &acct); err != nil {
		return account.Account{}, err
	}

	slog.Info("auth_event", "event", "account_created", "email", acct.Email, "role", acct.Role, "account_id", acct.ID)
	return acct, nil
}

// ExecuteSeedAdmin creates the first admin account when none exists.
// PRE: Database is migrated
// POST: Returns true when an admin was created; existing admins are left alone
func ExecuteSeedAdmin(ctx context.Context, email, password string, deps CreateAccountDeps) (bool, error) {
	count, err := deps.AccountStore.CountByRole(ctx, account.RoleAdmin)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if email == "" || password == "" {
		return false, errors.New("no admin account exists and no admin credentials are configured")
	}

	if _, err := ExecuteCreateAccount(ctx, CreateAccountInput{
		Email:    email,
		Password: password,
		Role:     account.RoleAdmin,
	}, deps); err != nil {
		return false, err
	}

	slog.Info("auth_event", "event", "admin_seeded", "email", normalizeEmail(email))
	return true, nil
}
