package services

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/internal/memstore"
	"github.com/farm2home/farm2home/pkg/queue"
)

// The in-memory stores come from internal/memstore. The wrappers below only
// add fault injection and a few read helpers for assertions.

// ─── users ────────────────────────────────────────────────────────────────────

type memUsers struct {
	*memstore.Users
	findErr error
}

func newMemUsers() *memUsers { return &memUsers{Users: memstore.NewUsers()} }

func (m *memUsers) FindByEmailRole(ctx context.Context, email, role string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.Users.FindByEmailRole(ctx, email, role)
}

// ─── products ─────────────────────────────────────────────────────────────────

type memProducts struct {
	*memstore.Products

	mu      sync.Mutex
	listErr error
	// applyErr fails ApplyMarked after the update lands, like a lost reply.
	applyErr error
	// revertFailures makes the next n RevertMarked calls fail.
	revertFailures int
}

func newMemProducts() *memProducts { return &memProducts{Products: memstore.NewProducts()} }

func (m *memProducts) seed(p models.Product) models.Product {
	_ = m.Products.Insert(context.Background(), &p)
	return p
}

// get returns the stored product, or the zero value when it is gone.
func (m *memProducts) get(id primitive.ObjectID) models.Product {
	p, err := m.Products.FindByID(context.Background(), id)
	if err != nil {
		return models.Product{}
	}
	return *p
}

func (m *memProducts) List(ctx context.Context, farmerEmail string) ([]models.Product, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.Products.List(ctx, farmerEmail)
}

func (m *memProducts) ApplyMarked(ctx context.Context, id, adjID primitive.ObjectID, delta int) (bool, error) {
	ok, err := m.Products.ApplyMarked(ctx, id, adjID, delta)
	if err == nil && m.applyErr != nil {
		return false, m.applyErr
	}
	return ok, err
}

func (m *memProducts) RevertMarked(ctx context.Context, id, adjID primitive.ObjectID, delta int) (bool, error) {
	m.mu.Lock()
	if m.revertFailures > 0 {
		m.revertFailures--
		m.mu.Unlock()
		return false, errStoreDown
	}
	m.mu.Unlock()
	return m.Products.RevertMarked(ctx, id, adjID, delta)
}

// ─── orders ───────────────────────────────────────────────────────────────────

type memOrders struct {
	*memstore.Orders

	insertErr error
	listErr   error
	// beforeDelete runs inside Delete, before the order is removed.
	beforeDelete func(id primitive.ObjectID)
}

func newMemOrders() *memOrders { return &memOrders{Orders: memstore.NewOrders()} }

func (m *memOrders) seed(o models.Order) models.Order {
	_ = m.Orders.Insert(context.Background(), &o)
	return o
}

func (m *memOrders) count() int {
	all, _ := m.Orders.List(context.Background(), repositories.OrderFilter{})
	return len(all)
}

func (m *memOrders) Insert(ctx context.Context, o *models.Order) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	return m.Orders.Insert(ctx, o)
}

func (m *memOrders) List(ctx context.Context, f repositories.OrderFilter) ([]models.Order, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.Orders.List(ctx, f)
}

func (m *memOrders) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	if m.beforeDelete != nil {
		m.beforeDelete(id)
	}
	return m.Orders.Delete(ctx, id)
}

// ─── journal ──────────────────────────────────────────────────────────────────

type memJournal struct {
	*memstore.Journal
}

func newMemJournal() *memJournal { return &memJournal{Journal: memstore.NewJournal()} }

func (m *memJournal) all() []models.StockAdjustment { return m.Journal.All() }

func (m *memJournal) only() models.StockAdjustment {
	all := m.all()
	if len(all) != 1 {
		panic("expected exactly one journal entry")
	}
	return all[0]
}

// ─── queue, tx, images ────────────────────────────────────────────────────────

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []queue.Job
}

func (d *recordingDispatcher) DispatchAfter(_ context.Context, job queue.Job, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

// passthroughTx runs fn directly; Mongo owns rollback in production.
type passthroughTx struct{}

func (passthroughTx) Transactional() bool { return true }

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memImages struct {
	stored   []string
	released []string
	err      error
}

func (m *memImages) Store(_ context.Context, image string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.stored = append(m.stored, image)
	return "https://cdn.test/products/" + primitive.NewObjectID().Hex() + ".png", nil
}

func (m *memImages) Release(_ context.Context, ref string) error {
	m.released = append(m.released, ref)
	return nil
}

// ─── fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	products *memProducts
	orders   *memOrders
	journal  *memJournal
	jobs     *recordingDispatcher
	ledger   *StockLedger
	service  *OrderService
}

func newFixture() *fixture {
	f := &fixture{
		products: newMemProducts(),
		orders:   newMemOrders(),
		journal:  newMemJournal(),
		jobs:     &recordingDispatcher{},
	}
	f.ledger = NewStockLedger(f.products, f.orders, f.journal, nil, f.jobs)
	f.service = NewOrderService(f.products, f.orders, f.ledger)
	return f
}
