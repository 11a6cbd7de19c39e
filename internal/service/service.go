// Package service implements the storefront operations on top of the collection store.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/apperr"
	"storefront/internal/idgen"
	"storefront/internal/model"
	"storefront/internal/store"
	"storefront/internal/validate"
	"storefront/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Collection names
const (
	CollectionUsers         = "users"
	CollectionCategories    = "categories"
	CollectionSubCategories = "subcategories"
	CollectionBrands        = "brands"
	CollectionProducts      = "products"
	CollectionCarts         = "carts"
	CollectionOrders        = "orders"
	CollectionPayments      = "payments"
)

// Collections lists every collection the service owns
var Collections = []string{
	CollectionUsers,
	CollectionCategories,
	CollectionSubCategories,
	CollectionBrands,
	CollectionProducts,
	CollectionCarts,
	CollectionOrders,
	CollectionPayments,
}

// Metrics receives business events
type Metrics interface {
	RecordOperation(entity, operation string)
	RecordPayment(outcome string)
	UpdateInventory(productID, productName string, quantity int)
	ForgetProduct(productID string)
}

// ImageRemover deletes a stored image file
type ImageRemover interface {
	Remove(path string) error
}

type nopMetrics struct{}

func (nopMetrics) RecordOperation(string, string)      {}
func (nopMetrics) RecordPayment(string)                {}
func (nopMetrics) UpdateInventory(string, string, int) {}
func (nopMetrics) ForgetProduct(string)                {}

type nopImages struct{}

func (nopImages) Remove(string) error { return nil }

type Service struct {
	store *store.Store

	users         store.Collection[model.User]
	categories    store.Collection[model.Category]
	subCategories store.Collection[model.SubCategory]
	brands        store.Collection[model.Brand]
	products      store.Collection[model.Product]
	carts         store.Collection[model.Cart]
	orders        store.Collection[model.Order]
	payments      store.Collection[model.Payment]

	ids        *idgen.Generator
	orderIDs   *idgen.Generator
	paymentIDs *idgen.Generator

	images       ImageRemover
	metrics      Metrics
	now          func() time.Time
	passwordCost int
}

type Option func(*Service)

// WithIDOptions tunes all identifier generators
func WithIDOptions(opts ...idgen.Option) Option {
	return func(s *Service) {
		prefixed := func(prefix string) []idgen.Option {
			return append(append([]idgen.Option{}, opts...), idgen.WithPrefix(prefix))
		}
		s.ids = idgen.New(opts...)
		s.orderIDs = idgen.New(prefixed("ORD-")...)
		s.paymentIDs = idgen.New(prefixed("PAY-")...)
	}
}

func WithImageRemover(r ImageRemover) Option {
	return func(s *Service) { s.images = r }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPasswordCost sets the bcrypt cost for new password hashes
func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.passwordCost = cost }
}

func New(st *store.Store, opts ...Option) *Service {
	s := &Service{
		store:         st,
		users:         store.NewCollection[model.User](st, CollectionUsers),
		categories:    store.NewCollection[model.Category](st, CollectionCategories),
		subCategories: store.NewCollection[model.SubCategory](st, CollectionSubCategories),
		brands:        store.NewCollection[model.Brand](st, CollectionBrands),
		products:      store.NewCollection[model.Product](st, CollectionProducts),
		carts:         store.NewCollection[model.Cart](st, CollectionCarts),
		orders:        store.NewCollection[model.Order](st, CollectionOrders),
		payments:      store.NewCollection[model.Payment](st, CollectionPayments),
		images:        nopImages{},
		metrics:       nopMetrics{},
		now:           time.Now,
		passwordCost:  bcrypt.DefaultCost,
	}
	WithIDOptions()(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init creates any collection missing from the backing store
func (s *Service) Init(ctx context.Context) error {
	return s.store.Init(ctx, Collections...)
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// removeImage deletes path after a committed change. Failures are logged only.
func (s *Service) removeImage(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.images.Remove(path); err != nil {
		logger.FromContext(ctx).Warn("Failed to remove image",
			zap.String("image_path", path),
			zap.Error(err))
	}
}

// required returns a validation error for the first empty value in name/value pairs
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return apperr.Validation("%s is required", pairs[i])
		}
	}
	return nil
}

func nextID(gen *idgen.Generator, taken validate.Set, collection string) (string, error) {
	id, err := gen.Next(taken.Has)
	if errors.Is(err, idgen.ErrSpaceExhausted) {
		return "", apperr.Storage(err, "allocate %s id", collection)
	}
	return id, err
}

// matches reports whether q occurs in any of fields, ignoring case
func matches(q string, fields ...string) bool {
	q = validate.Fold(q)
	if q == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(validate.Fold(f), q) {
			return true
		}
	}
	return false
}

func sameName(a, b string) bool {
	return validate.Fold(a) == validate.Fold(b)
}

func userKey(u model.User) string { return u.UserID }

func categoryKey(c model.Category) string { return c.CategoryID }

func categoryName(c model.Category) string { return c.Name }

func subCategoryKey(c model.SubCategory) string { return c.SubCategoryID }

func brandKey(b model.Brand) string { return b.BrandID }

func brandName(b model.Brand) string { return b.Name }

func productKey(p model.Product) string { return p.ProductID }

func orderKey(o model.Order) string { return o.OrderID }

func paymentKey(p model.Payment) string { return p.PaymentID }
