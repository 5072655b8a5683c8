package services

import (
	"context"
	"time"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
)

// SampleAccounts is the demo catalog loaded by the seed command.
func SampleAccounts() []models.Account {
	return []models.Account{
		{
			AdventureRank: 55,
			Characters:    []string{"Zhongli", "Raiden Shogun", "Kazuha", "Nahida", "Hu Tao"},
			FiveStars:     8,
			FourStars:     25,
			Primogems:     15000,
			Price:         2500000,
			Region:        models.RegionAsia,
			Status:        models.AccountAvailable,
			Description:   "Strong account with many meta 5-star characters",
		},
		{
			AdventureRank: 45,
			Characters:    []string{"Hu Tao", "Yelan", "Ayaka", "Venti"},
			FiveStars:     6,
			FourStars:     18,
			Primogems:     8000,
			Price:         1800000,
			Region:        models.RegionAsia,
			Status:        models.AccountAvailable,
			Description:   "Good DPS account",
		},
		{
			AdventureRank: 60,
			Characters:    []string{"Neuvillette", "Furina", "Arlecchino", "Xianyun", "Navia"},
			FiveStars:     12,
			FourStars:     30,
			Primogems:     25000,
			Price:         4500000,
			Region:        models.RegionAmerica,
			Status:        models.AccountAvailable,
			Description:   "End-game account with complete teams",
		},
	}
}

// SeedCatalog replaces every account with accounts and returns how many were
// removed.
func SeedCatalog(ctx context.Context, store storage.AccountStore, accounts []models.Account) (int64, error) {
	removed, err := store.DeleteAllAccounts(ctx)
	if err != nil {
		return 0, apperr.Internal("failed to clear accounts", err)
	}

	now := time.Now().UTC()
	for i := range accounts {
		acct := accounts[i]
		// Distinct timestamps keep the newest-first listing deterministic.
		acct.CreatedAt = now.Add(time.Duration(i) * time.Millisecond)
		acct.UpdatedAt = acct.CreatedAt
		if acct.Images == nil {
			acct.Images = []string{}
		}
		if err := store.CreateAccount(ctx, &acct); err != nil {
			return removed, apperr.Internal("failed to insert account", err)
		}
	}
	return removed, nil
}
