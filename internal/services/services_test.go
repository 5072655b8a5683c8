package services

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/metrics"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage/memory"
)

type testEnv struct {
	store    *memory.Store
	auth     *AuthService
	accounts *AccountService
	orders   *OrderService
	tokens   *TokenIssuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	m := metrics.New()
	log := zap.NewNop()
	tokens := NewTokenIssuer("test-secret", time.Hour, "genshinshop-test")

	auth := NewAuthService(store, tokens, m, log)
	auth.cost = bcrypt.MinCost

	return &testEnv{
		store:    store,
		auth:     auth,
		accounts: NewAccountService(store, log),
		orders:   NewOrderService(store, store, m, log),
		tokens:   tokens,
	}
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }
