// Package memory is an in-memory implementation of the storage interfaces. It is
// safe for concurrent use and is intended for tests and local demos.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/genshinshop-gobackend/internal/models"
	"github.com/markjakearzadon/genshinshop-gobackend/internal/storage"
)

type entry[T any] struct {
	seq int64
	val T
}

type Store struct {
	mu       sync.RWMutex
	seq      int64
	accounts map[primitive.ObjectID]entry[models.Account]
	orders   map[primitive.ObjectID]entry[models.Order]
	users    map[primitive.ObjectID]entry[models.User]
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[primitive.ObjectID]entry[models.Account]),
		orders:   make(map[primitive.ObjectID]entry[models.Order]),
		users:    make(map[primitive.ObjectID]entry[models.User]),
	}
}

func (s *Store) nextSeqLocked() int64 {
	s.seq++
	return s.seq
}

func parseID(id string) (primitive.ObjectID, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	return oid, err == nil
}

// sortNewest orders entries by creation time, newest first, falling back to
// insertion order for identical timestamps.
func sortNewest[T any](entries []entry[T], created func(T) time.Time) []T {
	slices.SortStableFunc(entries, func(a, b entry[T]) int {
		if c := created(b.val).Compare(created(a.val)); c != 0 {
			return c
		}
		return int(b.seq - a.seq)
	})
	return lo.Map(entries, func(e entry[T], _ int) T { return e.val })
}

// Accounts ---------------------------------------------------------------------

func (s *Store) CreateAccount(_ context.Context, acct *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if acct.ID.IsZero() {
		acct.ID = primitive.NewObjectID()
	} else if _, exists := s.accounts[acct.ID]; exists {
		return storage.ErrDuplicate
	}
	s.accounts[acct.ID] = entry[models.Account]{seq: s.nextSeqLocked(), val: cloneAccount(*acct)}
	return nil
}

func (s *Store) GetAccount(_ context.Context, id string) (*models.Account, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.accounts[oid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	acct := cloneAccount(e.val)
	return &acct, nil
}

func (s *Store) GetAccounts(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[primitive.ObjectID]models.Account, len(ids))
	for _, id := range ids {
		if e, ok := s.accounts[id]; ok {
			result[id] = cloneAccount(e.val)
		}
	}
	return result, nil
}

func (s *Store) ListAccounts(_ context.Context, filter models.AccountFilter) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entry[models.Account], 0, len(s.accounts))
	for _, e := range s.accounts {
		if matchAccount(e.val, filter) {
			matched = append(matched, entry[models.Account]{seq: e.seq, val: cloneAccount(e.val)})
		}
	}
	return sortNewest(matched, func(a models.Account) time.Time { return a.CreatedAt }), nil
}

func matchAccount(a models.Account, f models.AccountFilter) bool {
	if f.Region != "" && a.Region != f.Region {
		return false
	}
	if f.MinAR != nil && a.AdventureRank < *f.MinAR {
		return false
	}
	if f.MaxPrice != nil && a.Price > *f.MaxPrice {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		return lo.ContainsBy(a.Characters, func(c string) bool {
			return strings.Contains(strings.ToLower(c), needle)
		})
	}
	return true
}

func (s *Store) UpdateAccount(_ context.Context, id string, in models.AccountInput) (*models.Account, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.accounts[oid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	in.Apply(&e.val)
	e.val = cloneAccount(e.val)
	e.val.UpdatedAt = time.Now().UTC()
	s.accounts[oid] = e
	acct := cloneAccount(e.val)
	return &acct, nil
}

func (s *Store) DeleteAccount(_ context.Context, id string) error {
	oid, ok := parseID(id)
	if !ok {
		return storage.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[oid]; !ok {
		return storage.ErrNotFound
	}
	delete(s.accounts, oid)
	return nil
}

func (s *Store) DeleteAllAccounts(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.accounts))
	s.accounts = make(map[primitive.ObjectID]entry[models.Account])
	return n, nil
}

func (s *Store) SwapAccountStatus(_ context.Context, id string, from, to models.AccountStatus) (*models.Account, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.accounts[oid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if e.val.Status != from {
		return nil, storage.ErrStatusChanged
	}
	before := cloneAccount(e.val)
	e.val.Status = to
	e.val.UpdatedAt = time.Now().UTC()
	s.accounts[oid] = e
	return &before, nil
}

func (s *Store) SetAccountStatus(_ context.Context, id string, status models.AccountStatus) error {
	oid, ok := parseID(id)
	if !ok {
		return storage.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.accounts[oid]
	if !ok {
		return storage.ErrNotFound
	}
	e.val.Status = status
	e.val.UpdatedAt = time.Now().UTC()
	s.accounts[oid] = e
	return nil
}

func (s *Store) AccountStats(_ context.Context) (models.AccountStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.AccountStats
	var sum float64
	for _, e := range s.accounts {
		stats.Total++
		sum += e.val.Price
		switch e.val.Status {
		case models.AccountAvailable:
			stats.Available++
		case models.AccountSold:
			stats.Sold++
		}
	}
	if stats.Total > 0 {
		stats.AveragePrice = sum / float64(stats.Total)
	}
	return stats, nil
}

// Orders -----------------------------------------------------------------------

func (s *Store) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	} else if _, exists := s.orders[order.ID]; exists {
		return storage.ErrDuplicate
	}
	s.orders[order.ID] = entry[models.Order]{seq: s.nextSeqLocked(), val: *order}
	return nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*models.Order, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.orders[oid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	order := e.val
	return &order, nil
}

func (s *Store) ListOrders(_ context.Context, status models.OrderStatus) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entry[models.Order], 0, len(s.orders))
	for _, e := range s.orders {
		if status == "" || e.val.Status == status {
			matched = append(matched, e)
		}
	}
	return sortNewest(matched, func(o models.Order) time.Time { return o.CreatedAt }), nil
}

func (s *Store) SwapOrderStatus(_ context.Context, id string, from, to models.OrderStatus) (*models.Order, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.orders[oid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if e.val.Status != from {
		return nil, storage.ErrStatusChanged
	}
	before := e.val
	e.val.Status = to
	e.val.UpdatedAt = time.Now().UTC()
	s.orders[oid] = e
	return &before, nil
}

// Users ------------------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.users {
		if e.val.Username == user.Username || e.val.Email == user.Email {
			return storage.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = entry[models.User]{seq: s.nextSeqLocked(), val: *user}
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.users[oid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	user := e.val
	return &user, nil
}

func (s *Store) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.users {
		if match(e.val) {
			user := e.val
			return &user, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) FindUserByLogin(_ context.Context, login string) (*models.User, error) {
	email := strings.ToLower(login)
	return s.findUser(func(u models.User) bool {
		return u.Username == login || u.Email == email
	})
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *Store) UserExists(_ context.Context, username, email string) (bool, error) {
	_, err := s.findUser(func(u models.User) bool {
		return u.Username == username || u.Email == email
	})
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Store) ListUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]entry[models.User], 0, len(s.users))
	for _, e := range s.users {
		all = append(all, e)
	}
	return sortNewest(all, func(u models.User) time.Time { return u.CreatedAt }), nil
}

// updateUser runs fn on the stored user under the write lock.
func (s *Store) updateUser(id string, fn func(*models.User) error) (*models.User, error) {
	oid, ok := parseID(id)
	if !ok {
		return nil, storage.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.users[oid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if err := fn(&e.val); err != nil {
		return nil, err
	}
	e.val.UpdatedAt = time.Now().UTC()
	s.users[oid] = e
	user := e.val
	return &user, nil
}

func (s *Store) UpdateUserProfile(_ context.Context, id string, p models.ProfileRequest) (*models.User, error) {
	return s.updateUser(id, func(u *models.User) error {
		if p.Email != nil {
			for oid, other := range s.users {
				if oid != u.ID && other.val.Email == *p.Email {
					return storage.ErrDuplicate
				}
			}
			u.Email = *p.Email
		}
		if p.FullName != nil {
			u.FullName = *p.FullName
		}
		if p.Phone != nil {
			u.Phone = *p.Phone
		}
		return nil
	})
}

func (s *Store) SetUserPassword(_ context.Context, id, hash string) error {
	_, err := s.updateUser(id, func(u *models.User) error {
		u.HPassword = hash
		return nil
	})
	return err
}

func (s *Store) ToggleUserActive(_ context.Context, id string) (*models.User, error) {
	return s.updateUser(id, func(u *models.User) error {
		u.IsActive = !u.IsActive
		return nil
	})
}

func cloneAccount(a models.Account) models.Account {
	a.Characters = slices.Clone(a.Characters)
	a.Images = slices.Clone(a.Images)
	return a
}
