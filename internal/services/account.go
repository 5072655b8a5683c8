package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
)

// AccountService manages the catalog of sellable accounts.
type AccountService struct {
	accounts storage.AccountStore
	log      *zap.Logger
}

func NewAccountService(accounts storage.AccountStore, log *zap.Logger) *AccountService {
	return &AccountService{accounts: accounts, log: log}
}

func (s *AccountService) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	if filter.Region != "" && !filter.Region.Valid() {
		return nil, apperr.Validation("validation failed",
			apperr.FieldError{Field: "region", Message: "region must be one of: Asia America Europe"})
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Validation("validation failed",
			apperr.FieldError{Field: "status", Message: "status must be one of: available sold reserved"})
	}

	accounts, err := s.accounts.ListAccounts(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list accounts", err)
	}
	return accounts, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*models.Account, error) {
	acct, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, accountErr(err, "failed to get account")
	}
	return acct, nil
}

// Create validates in and stores a new account, defaulting the status to
// available and the collections to empty.
func (s *AccountService) Create(ctx context.Context, in models.AccountInput) (*models.Account, error) {
	var missing []apperr.FieldError
	if in.AdventureRank == nil {
		missing = append(missing, apperr.FieldError{Field: "adventureRank", Message: "adventureRank is required"})
	}
	if in.Price == nil {
		missing = append(missing, apperr.FieldError{Field: "price", Message: "price is required"})
	}
	if in.Region == nil {
		missing = append(missing, apperr.FieldError{Field: "region", Message: "region is required"})
	}
	if len(missing) > 0 {
		return nil, apperr.Validation("validation failed", missing...)
	}

	now := time.Now().UTC()
	acct := &models.Account{
		Characters: []string{},
		Images:     []string{},
		Status:     models.AccountAvailable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	in.Apply(acct)
	if err := models.Validate(acct); err != nil {
		return nil, apperr.FromValidator(err)
	}

	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		return nil, apperr.Internal("failed to create account", err)
	}
	s.log.Info("account created", zap.String("account_id", acct.ID.Hex()), zap.Float64("price", acct.Price))
	return acct, nil
}

// Update applies the present fields of in. The merged account must still be
// valid. Only those fields are written, so a concurrent reservation keeps its
// status unless in carries one.
func (s *AccountService) Update(ctx context.Context, id string, in models.AccountInput) (*models.Account, error) {
	current, err := s.accounts.GetAccount(ctx, id)
	if err != nil {
		return nil, accountErr(err, "failed to get account")
	}

	merged := *current
	in.Apply(&merged)
	if err := models.Validate(merged); err != nil {
		return nil, apperr.FromValidator(err)
	}

	acct, err := s.accounts.UpdateAccount(ctx, id, in)
	if err != nil {
		return nil, accountErr(err, "failed to update account")
	}
	if acct.Characters == nil {
		acct.Characters = []string{}
	}
	if acct.Images == nil {
		acct.Images = []string{}
	}
	return acct, nil
}

// Delete removes the account. Orders referencing it are kept.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	if err := s.accounts.DeleteAccount(ctx, id); err != nil {
		return accountErr(err, "failed to delete account")
	}
	s.log.Info("account deleted", zap.String("account_id", id))
	return nil
}

func (s *AccountService) Stats(ctx context.Context) (models.AccountStats, error) {
	stats, err := s.accounts.AccountStats(ctx)
	if err != nil {
		return models.AccountStats{}, apperr.Internal("failed to compute stats", err)
	}
	return stats, nil
}

func accountErr(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("account not found")
	}
	return apperr.Internal(msg, err)
}
