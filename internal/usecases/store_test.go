package usecases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.openly.dev/pointy"

	"github.com/lky8/entries-shop/backend/internal/entities"
)

// memStore is an in-memory stand-in for the Postgres repositories. Its
// transactor restores a snapshot when the callback fails, mirroring a
// rolled back transaction.
type memStore struct {
	mu sync.Mutex

	packages map[int64]entities.Package
	users    []entities.UserInfo
	orders   []entities.Order
	payments []entities.CryptoPayment

	completeErr error
}

type memSnapshot struct {
	packages map[int64]entities.Package
	users    []entities.UserInfo
	orders   []entities.Order
	payments []entities.CryptoPayment
}

func newMemStore(packages ...entities.Package) *memStore {
	s := &memStore{packages: make(map[int64]entities.Package)}
	for _, p := range packages {
		s.packages[p.ID] = p
	}
	return s
}

func testPackage() entities.Package {
	return entities.Package{
		ID:             1,
		Name:           "Gold",
		Img:            "gold.png",
		Entries:        pointy.Int32(10),
		CryptoAmount:   decimal.NewNullDecimal(decimal.RequireFromString("0.00080000")),
		FiatAmount:     decimal.NewNullDecimal(decimal.RequireFromString("50.00")),
		CryptoCurrency: pointy.String("btc"),
		FiatCurrency:   pointy.String("usd"),
		Message:        "stored message",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	snap := memSnapshot{
		packages: maps.Clone(s.packages),
		users:    slices.Clone(s.users),
		orders:   slices.Clone(s.orders),
		payments: slices.Clone(s.payments),
	}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.packages, s.users, s.orders, s.payments = snap.packages, snap.users, snap.orders, snap.payments
		s.mu.Unlock()
		return err
	}
	return nil
}

// packages

func (s *memStore) ListPackages(_ context.Context) ([]entities.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := slices.Sorted(maps.Keys(s.packages))
	out := make([]entities.Package, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.packages[id])
	}
	return out, nil
}

func (s *memStore) FindPackageByID(_ context.Context, id int64) (*entities.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *memStore) UpdateCachedPrice(_ context.Context, id int64, cryptoAmount decimal.Decimal, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.packages[id]
	if !ok {
		return errors.New("no such package")
	}
	p.CryptoAmount = decimal.NewNullDecimal(cryptoAmount)
	p.Message = message
	s.packages[id] = p
	return nil
}

// users

func (s *memStore) InsertUserIfAbsent(_ context.Context, user *entities.UserInfo) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return false, nil
		}
	}
	user.ID = int64(len(s.users) + 1)
	s.users = append(s.users, *user)
	return true, nil
}

func (s *memStore) FindUserByEmail(_ context.Context, email string) (*entities.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindUserByID(_ context.Context, id int64) (*entities.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memStore) UpdateUser(_ context.Context, id int64, patch entities.UserInfoPatch) (*entities.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.users {
		u := &s.users[i]
		if u.ID != id {
			continue
		}
		assign := func(dst **string, v *string) {
			if v != nil {
				*dst = pointy.String(*v)
			}
		}
		assign(&u.FirstName, patch.FirstName)
		assign(&u.LastName, patch.LastName)
		assign(&u.CompanyName, patch.CompanyName)
		assign(&u.Country, patch.Country)
		assign(&u.StreetAddress, patch.StreetAddress)
		assign(&u.County, patch.County)
		assign(&u.Postcode, patch.Postcode)
		assign(&u.Phone, patch.Phone)
		if patch.City != nil {
			u.City = *patch.City
		}
		updated := *u
		return &updated, nil
	}
	return nil, errors.New("no such user")
}

// orders

func (s *memStore) InsertOrder(_ context.Context, order *entities.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order.ID = int64(len(s.orders) + 1)
	order.DateAndTime = time.Now()
	s.orders = append(s.orders, *order)
	return nil
}

func (s *memStore) FindOrderByPublicID(_ context.Context, orderID string) (*entities.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.OrderID == orderID {
			return &o, nil
		}
	}
	return nil, nil
}

func (s *memStore) FindUserOrders(_ context.Context, userID int64) ([]entities.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []entities.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *memStore) CompleteOrder(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.completeErr != nil {
		return false, s.completeErr
	}
	for i := range s.orders {
		o := &s.orders[i]
		if o.ID != id {
			continue
		}
		if o.Status != nil && *o.Status == entities.OrderStatusCompleted {
			return false, nil
		}
		completed := entities.OrderStatusCompleted
		o.Status = &completed
		return true, nil
	}
	return false, nil
}

// payments

func (s *memStore) InsertPayment(_ context.Context, payment *entities.CryptoPayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payment.ID = int64(len(s.payments) + 1)
	payment.CreatedAt = time.Now()
	payment.UpdatedAt = payment.CreatedAt
	s.payments = append(s.payments, *payment)
	return nil
}

func (s *memStore) FindPaymentByOrderID(_ context.Context, orderID int64) (*entities.CryptoPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.payments {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *memStore) ApplyUpdate(_ context.Context, id int64, u entities.PaymentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.payments {
		p := &s.payments[i]
		if p.ID != id {
			continue
		}
		p.PaymentID = u.PaymentID
		p.OrderDescription = u.OrderDescription
		p.PayinAddress = u.PayinAddress
		p.PayoutAddress = u.PayoutAddress
		p.PayinTxHash = u.PayinTxHash
		p.PayoutTxHash = u.PayoutTxHash
		p.PayCurrency = u.PayCurrency
		p.Status = pointy.String(u.Status)
		p.PriceAmount = u.PriceAmount
		p.PriceCurrency = u.PriceCurrency
		p.PaidCryptoAmount = u.PaidCryptoAmount
		p.UpdatedAt = time.Now()
		return nil
	}
	return errors.New("no such payment")
}

func (s *memStore) counts() (users, orders, payments int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users), len(s.orders), len(s.payments)
}
