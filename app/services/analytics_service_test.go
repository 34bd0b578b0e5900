package services

import (
	"context"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/pkg/cache"
	"github.com/farm2home/farm2home/pkg/event"
)

const farmer = "ravi@farm.test"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

func seedAnalytics(products *memProducts, orders *memOrders) {
	sold := []struct {
		name  string
		qty   int
		total float64
		at    time.Time
	}{
		{"Onion", 1, 30, day(2023, time.December, 15)},
		{"Tomato", 5, 200, day(2024, time.January, 10)},
		{"Tomato", 2, 80, day(2024, time.February, 3)},
		{"Onion", 10, 300, day(2024, time.March, 20)},
		{"Potato", 4, 100, day(2024, time.May, 5)},
		{"Onion", 1, 30, day(2024, time.June, 30)},
		{"Tomato", 3, 120.5, day(2024, time.July, 10)},
		{"Potato", 2, 50.25, day(2024, time.July, 14)},
	}
	for _, s := range sold {
		orders.seed(models.Order{
			ProductName: s.name,
			FarmerEmail: farmer,
			Quantity:    s.qty,
			TotalPrice:  s.total,
			CreatedAt:   s.at,
		})
	}
	orders.seed(models.Order{ProductName: "Rice", FarmerEmail: "other@farm.test", Quantity: 50, TotalPrice: 999, CreatedAt: day(2024, time.July, 14)})

	products.seed(models.Product{Name: "Tomato", Quantity: 25, FarmerEmail: farmer, CreatedAt: day(2024, time.May, 1)})
	products.seed(models.Product{Name: "Onion", Quantity: 4, FarmerEmail: farmer, CreatedAt: day(2024, time.June, 1)})
	products.seed(models.Product{Name: "Potato", Quantity: 0, FarmerEmail: farmer, CreatedAt: day(2024, time.July, 1)})
	products.seed(models.Product{Name: "Rice", Quantity: 90, FarmerEmail: "other@farm.test", CreatedAt: day(2024, time.July, 2)})
}

func TestFarmerAnalyticsReport(t *testing.T) {
	products, orders := newMemProducts(), newMemOrders()
	seedAnalytics(products, orders)

	svc := NewAnalyticsService(products, orders)
	svc.now = func() time.Time { return time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC) }

	report, err := svc.ForFarmer(context.Background(), farmer)
	require.NoError(t, err)

	out, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "farmer_analytics", out)
}

func TestFarmerAnalyticsEmpty(t *testing.T) {
	svc := NewAnalyticsService(newMemProducts(), newMemOrders())

	report, err := svc.ForFarmer(context.Background(), "new@farm.test")
	require.NoError(t, err)
	assert.Zero(t, report.TotalSales)
	assert.Zero(t, report.TotalRevenue)
	assert.Empty(t, report.MonthlySales.Labels)
	assert.NotNil(t, report.MonthlySales.Data)
	assert.Empty(t, report.ProductPerformance)
	assert.Empty(t, report.StockDistribution)

	out, err := json.Marshal(report.MonthlyRevenue)
	require.NoError(t, err)
	assert.JSONEq(t, `{"labels":[],"data":[]}`, string(out))
}

func TestFarmerAnalyticsFailures(t *testing.T) {
	products, orders := newMemProducts(), newMemOrders()
	svc := NewAnalyticsService(products, orders)

	orders.seed(models.Order{FarmerEmail: farmer, Quantity: 1})
	_, err := svc.ForFarmer(context.Background(), farmer)
	require.ErrorIs(t, err, ErrAggregation, "orders without a timestamp cannot be bucketed")
	assert.Equal(t, "Failed to fetch analytics", err.(*Error).Message)

	products.listErr = errStoreDown
	_, err = svc.ForFarmer(context.Background(), farmer)
	require.ErrorIs(t, err, ErrAggregation)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestFarmerAnalyticsRejectsNonFiniteRevenue(t *testing.T) {
	at := day(2024, 7, 1)
	cases := map[string][]models.Order{
		"infinite total": {{FarmerEmail: farmer, Quantity: 1, TotalPrice: math.Inf(1), CreatedAt: at}},
		"nan total":      {{FarmerEmail: farmer, Quantity: 1, TotalPrice: math.NaN(), CreatedAt: at}},
		"sum overflows": {
			{FarmerEmail: farmer, Quantity: 1, TotalPrice: 1.7e308, CreatedAt: at},
			{FarmerEmail: farmer, Quantity: 1, TotalPrice: 1.7e308, CreatedAt: at},
		},
	}
	for name, stored := range cases {
		t.Run(name, func(t *testing.T) {
			products, orders := newMemProducts(), newMemOrders()
			for _, o := range stored {
				orders.seed(o)
			}
			svc := NewAnalyticsService(products, orders)

			var err error
			require.NotPanics(t, func() { _, err = svc.ForFarmer(context.Background(), farmer) })
			require.ErrorIs(t, err, ErrAggregation)
			assert.Equal(t, "Failed to fetch analytics", err.(*Error).Message)
		})
	}
}

func TestFarmerAnalyticsCacheIsEvictedByEvents(t *testing.T) {
	event.Flush()
	defer event.Flush()

	products, orders := newMemProducts(), newMemOrders()
	svc := NewAnalyticsService(products, orders)
	svc.UseCache(cache.NewMemory(), time.Minute)
	svc.InvalidateOnChanges()
	ctx := context.Background()

	report, err := svc.ForFarmer(ctx, farmer)
	require.NoError(t, err)
	assert.Zero(t, report.TotalSales)

	placed := orders.seed(models.Order{FarmerEmail: farmer, Quantity: 2, TotalPrice: 80, CreatedAt: time.Now().UTC()})
	report, err = svc.ForFarmer(ctx, farmer)
	require.NoError(t, err)
	assert.Zero(t, report.TotalSales, "served from cache")

	event.Fire(EventOrderPlaced, placed)
	report, err = svc.ForFarmer(ctx, farmer)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalSales)
	assert.Equal(t, 80.0, report.TotalRevenue)

	products.seed(models.Product{Name: "Tomato", Quantity: 7, FarmerEmail: farmer, CreatedAt: time.Now().UTC()})
	event.Fire(EventProductChanged, models.Product{FarmerEmail: "other@farm.test"})
	report, err = svc.ForFarmer(ctx, farmer)
	require.NoError(t, err)
	assert.Zero(t, report.CurrentStock, "another farmer's change keeps this report")

	event.Fire(EventProductChanged, models.Product{FarmerEmail: farmer})
	report, err = svc.ForFarmer(ctx, farmer)
	require.NoError(t, err)
	assert.Equal(t, 7, report.CurrentStock)
}

func TestFarmerAnalyticsCacheIsEvictedByLedger(t *testing.T) {
	event.Flush()
	defer event.Flush()

	f := newFixture()
	svc := NewAnalyticsService(f.products, f.orders)
	store := cache.NewMemory()
	svc.UseCache(store, time.Minute)
	svc.InvalidateOnChanges()
	ctx := context.Background()

	// Stock taken for an order that was never written, as after a crash.
	p := tomatoes(6)
	p.ID = primitive.NewObjectID()
	adj := models.StockAdjustment{
		ID:        primitive.NewObjectID(),
		ProductID: p.ID,
		OrderID:   primitive.NewObjectID(),
		Delta:     -4,
		Reason:    models.ReasonOrderCreate,
		State:     models.AdjustmentPending,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, f.journal.Insert(ctx, &adj))
	p.PendingAdjustments = []primitive.ObjectID{adj.ID}
	f.products.seed(p)

	report, err := svc.ForFarmer(ctx, farmer)
	require.NoError(t, err)
	assert.Equal(t, 6, report.CurrentStock)

	_, err = f.ledger.Recover(ctx, time.Minute)
	require.NoError(t, err)
	report, err = svc.ForFarmer(ctx, farmer)
	require.NoError(t, err)
	assert.Equal(t, 10, report.CurrentStock, "recovery restored stock")

	// A failed revert leaves the entry to the compensation job.
	f.orders.insertErr = errStoreDown
	f.products.revertFailures = 1
	require.Error(t, f.ledger.PlaceOrder(ctx, p.ID, newOrder(p, 3)))
	_, err = svc.ForFarmer(ctx, farmer)
	require.NoError(t, err)
	var cached models.FarmerAnalytics
	require.True(t, store.Get(ctx, reportKey(farmer), &cached))

	var pending models.StockAdjustment
	for _, a := range f.journal.all() {
		if a.State == models.AdjustmentPending {
			pending = a
		}
	}
	require.False(t, pending.ID.IsZero())
	require.NoError(t, f.ledger.Compensate(ctx, pending.ID.Hex()))
	assert.False(t, store.Get(ctx, reportKey(farmer), &cached), "compensation evicts the report")
	assert.Equal(t, 10, f.products.get(p.ID).Quantity)
}
