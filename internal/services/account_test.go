package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/apperr"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage/memory"
)

func validInput() models.AccountInput {
	return models.AccountInput{
		AdventureRank: intPtr(55),
		Characters:    []string{"Zhongli", "Raiden Shogun"},
		Price:         floatPtr(2500000),
		Region:        strPtr("Asia"),
	}
}

func TestCreateAccountDefaults(t *testing.T) {
	env := newTestEnv(t)

	acct, err := env.accounts.Create(context.Background(), validInput())
	require.NoError(t, err)

	assert.False(t, acct.ID.IsZero())
	assert.Equal(t, models.AccountAvailable, acct.Status)
	assert.Equal(t, 0, acct.FiveStars)
	assert.Equal(t, []string{}, acct.Images)
	assert.False(t, acct.CreatedAt.IsZero())
}

func TestCreateAccountValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.AccountInput)
		field  string
	}{
		{"missing price", func(in *models.AccountInput) { in.Price = nil }, "price"},
		{"missing region", func(in *models.AccountInput) { in.Region = nil }, "region"},
		{"missing rank", func(in *models.AccountInput) { in.AdventureRank = nil }, "adventureRank"},
		{"rank too high", func(in *models.AccountInput) { in.AdventureRank = intPtr(61) }, "adventureRank"},
		{"rank zero", func(in *models.AccountInput) { in.AdventureRank = intPtr(0) }, "adventureRank"},
		{"negative price", func(in *models.AccountInput) { in.Price = floatPtr(-1) }, "price"},
		{"bad region", func(in *models.AccountInput) { in.Region = strPtr("Mars") }, "region"},
		{"negative primogems", func(in *models.AccountInput) { in.Primogems = intPtr(-5) }, "primogems"},
		{"bad status", func(in *models.AccountInput) { in.Status = strPtr("gone") }, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := env.accounts.Create(ctx, in)
			require.True(t, apperr.IsKind(err, apperr.KindValidation), "got %v", err)
			fields := make([]string, 0)
			for _, d := range apperr.From(err).Details {
				fields = append(fields, d.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestUpdateAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct, err := env.accounts.Create(ctx, validInput())
	require.NoError(t, err)

	updated, err := env.accounts.Update(ctx, acct.ID.Hex(), models.AccountInput{Price: floatPtr(100)})
	require.NoError(t, err)
	assert.Equal(t, float64(100), updated.Price)
	assert.Equal(t, 55, updated.AdventureRank)
	assert.False(t, updated.UpdatedAt.Before(acct.UpdatedAt))

	_, err = env.accounts.Update(ctx, acct.ID.Hex(), models.AccountInput{AdventureRank: intPtr(99)})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	got, err := env.accounts.Get(ctx, acct.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 55, got.AdventureRank)

	_, err = env.accounts.Update(ctx, "64b7f0c2a1b2c3d4e5f60718", models.AccountInput{Price: floatPtr(1)})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

// interleavedAccounts runs afterGet once the account has been read.
type interleavedAccounts struct {
	*memory.Store
	afterGet func()
}

func (s interleavedAccounts) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	acct, err := s.Store.GetAccount(ctx, id)
	s.afterGet()
	return acct, err
}

func TestUpdateAccountKeepsConcurrentReservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct := createAccount(t, env)
	id := acct.ID.Hex()

	svc := NewAccountService(interleavedAccounts{Store: env.store, afterGet: func() {
		_, err := env.orders.CreateOrder(ctx, orderRequest(id))
		require.NoError(t, err)
	}}, zap.NewNop())

	updated, err := svc.Update(ctx, id, models.AccountInput{Price: floatPtr(1)})
	require.NoError(t, err)
	assert.Equal(t, float64(1), updated.Price)
	assert.Equal(t, models.AccountReserved, updated.Status)
	assert.Equal(t, models.AccountReserved, accountStatus(t, env, id))

	_, err = env.orders.CreateOrder(ctx, orderRequest(id))
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestGetAndDeleteAccount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acct, err := env.accounts.Create(ctx, validInput())
	require.NoError(t, err)

	_, err = env.accounts.Get(ctx, "not-an-id")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	require.NoError(t, env.accounts.Delete(ctx, acct.ID.Hex()))
	_, err = env.accounts.Get(ctx, acct.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	err = env.accounts.Delete(ctx, acct.ID.Hex())
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListAccountsFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := SeedCatalog(ctx, env.store, SampleAccounts())
	require.NoError(t, err)

	all, err := env.accounts.List(ctx, models.AccountFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 60, all[0].AdventureRank, "newest first")

	asia, err := env.accounts.List(ctx, models.AccountFilter{Region: models.RegionAsia})
	require.NoError(t, err)
	assert.Len(t, asia, 2)

	ranked, err := env.accounts.List(ctx, models.AccountFilter{MinAR: intPtr(55)})
	require.NoError(t, err)
	assert.Len(t, ranked, 2)

	cheap, err := env.accounts.List(ctx, models.AccountFilter{MaxPrice: floatPtr(2500000)})
	require.NoError(t, err)
	assert.Len(t, cheap, 2)

	huTao, err := env.accounts.List(ctx, models.AccountFilter{Search: "hu tao"})
	require.NoError(t, err)
	assert.Len(t, huTao, 2)

	combined, err := env.accounts.List(ctx, models.AccountFilter{Region: models.RegionAsia, MinAR: intPtr(50), Search: "nahida"})
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, 55, combined[0].AdventureRank)

	regex, err := env.accounts.List(ctx, models.AccountFilter{Search: ".*"})
	require.NoError(t, err)
	assert.Empty(t, regex)

	_, err = env.accounts.List(ctx, models.AccountFilter{Region: "Mars"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	_, err = env.accounts.List(ctx, models.AccountFilter{Status: "gone"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestAccountStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stats, err := env.accounts.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStats{}, stats)

	for _, price := range []float64{100, 300} {
		in := validInput()
		in.Price = floatPtr(price)
		_, err := env.accounts.Create(ctx, in)
		require.NoError(t, err)
	}
	in := validInput()
	in.Price = floatPtr(200)
	in.Status = strPtr("sold")
	_, err = env.accounts.Create(ctx, in)
	require.NoError(t, err)

	stats, err = env.accounts.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Available)
	assert.Equal(t, int64(1), stats.Sold)
	assert.InDelta(t, 200, stats.AveragePrice, 0.001)
}

func TestSeedCatalogReplaces(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.accounts.Create(ctx, validInput())
	require.NoError(t, err)

	removed, err := SeedCatalog(ctx, env.store, SampleAccounts())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err := env.accounts.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
}
