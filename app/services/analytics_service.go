package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/farm2home/farm2home/app/models"
	"github.com/farm2home/farm2home/app/repositories"
	"github.com/farm2home/farm2home/pkg/cache"
	"github.com/farm2home/farm2home/pkg/collection"
	"github.com/farm2home/farm2home/pkg/event"
	"github.com/farm2home/farm2home/pkg/logger"
)

const (
	monthLabelLayout = "Jan 2006"
	monthsShown      = 6
	recentWindow     = 7 * 24 * time.Hour
)

type AnalyticsService struct {
	products ProductStore
	orders   OrderStore
	cache    cache.Store
	ttl      time.Duration
	now      func() time.Time
}

func NewAnalyticsService(products ProductStore, orders OrderStore) *AnalyticsService {
	return &AnalyticsService{products: products, orders: orders, now: time.Now}
}

// UseCache keeps built reports in c for ttl. Pair it with
// InvalidateOnChanges so new orders and edited products show up at once.
func (s *AnalyticsService) UseCache(c cache.Store, ttl time.Duration) {
	s.cache, s.ttl = c, ttl
}

func reportKey(farmerEmail string) string { return "analytics:farmer:" + farmerEmail }

// Invalidate drops the cached report of one farmer.
func (s *AnalyticsService) Invalidate(ctx context.Context, farmerEmail string) {
	if s.cache == nil || farmerEmail == "" {
		return
	}
	if err := s.cache.Del(ctx, reportKey(farmerEmail)); err != nil {
		logger.WithCtx(ctx).Warn("analytics: cache evict failed", "farmer_email", farmerEmail, "error", err)
	}
}

// InvalidateOnChanges evicts a farmer's report whenever one of their orders
// or products changes.
func (s *AnalyticsService) InvalidateOnChanges() {
	evictOrder := func(p any) {
		if o, ok := p.(models.Order); ok {
			s.Invalidate(context.Background(), o.FarmerEmail)
		}
	}
	event.Listen(EventOrderPlaced, evictOrder)
	event.Listen(EventOrderDeleted, evictOrder)
	event.Listen(EventProductChanged, func(p any) {
		if product, ok := p.(models.Product); ok {
			s.Invalidate(context.Background(), product.FarmerEmail)
		}
	})
	// Compensation and recovery move stock without an order or product
	// event. Aborted entries never touched it.
	event.Listen(EventStockSettled, func(p any) {
		if se, ok := p.(StockEvent); ok && se.State != models.AdjustmentAborted {
			s.invalidateProduct(se.Adjustment.ProductID)
		}
	})
}

func (s *AnalyticsService) invalidateProduct(id primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		// A deleted product already evicted through EventProductChanged.
		logger.Debug("analytics: product lookup for eviction failed", "product_id", id.Hex(), "error", err)
		return
	}
	s.Invalidate(ctx, product.FarmerEmail)
}

// ForFarmer builds the dashboard report, or returns the cached one. Any
// fault fails the whole report.
func (s *AnalyticsService) ForFarmer(ctx context.Context, farmerEmail string) (*models.FarmerAnalytics, error) {
	if s.cache != nil {
		var cached models.FarmerAnalytics
		if s.cache.Get(ctx, reportKey(farmerEmail), &cached) {
			return &cached, nil
		}
	}

	var (
		orders   []models.Order
		products []models.Product
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orders, err = s.orders.List(gctx, repositories.OrderFilter{FarmerEmail: farmerEmail})
		return err
	})
	g.Go(func() (err error) {
		products, err = s.products.List(gctx, farmerEmail)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, aggregationError(err)
	}

	report, err := buildReport(farmerEmail, orders, products, s.now().UTC())
	if err != nil {
		return nil, aggregationError(err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, reportKey(farmerEmail), report, s.ttl); err != nil {
			logger.WithCtx(ctx).Warn("analytics: cache store failed", "farmer_email", farmerEmail, "error", err)
		}
	}
	return report, nil
}

func aggregationError(err error) *Error {
	return &Error{Kind: KindAggregation, Message: "Failed to fetch analytics", Err: err}
}

func buildReport(farmerEmail string, orders []models.Order, products []models.Product, now time.Time) (*models.FarmerAnalytics, error) {
	for _, o := range orders {
		if o.CreatedAt.IsZero() {
			return nil, fmt.Errorf("order %s has no created_at", o.ID.Hex())
		}
		if math.IsNaN(o.TotalPrice) || math.IsInf(o.TotalPrice, 0) {
			return nil, fmt.Errorf("order %s has a non-finite total_price", o.ID.Hex())
		}
	}
	revenue := sumRevenue(orders).Round(2).InexactFloat64()
	if math.IsInf(revenue, 0) {
		return nil, fmt.Errorf("revenue for %s overflows", farmerEmail)
	}

	report := &models.FarmerAnalytics{
		FarmerEmail:        farmerEmail,
		TotalSales:         len(orders),
		TotalRevenue:       revenue,
		TotalQuantitySold:  collection.Sum(collection.Map(orders, orderQuantity)),
		ProductPerformance: productPerformance(orders),
		CurrentStock:       collection.Sum(collection.Map(products, func(p models.Product) int { return p.Quantity })),
		StockDistribution: collection.Map(products, func(p models.Product) models.StockLevel {
			return models.StockLevel{Name: p.Name, Quantity: p.Quantity, Status: models.StockStatus(p.Quantity)}
		}),
		RecentOrders7Days: collection.Count(orders, func(o models.Order) bool {
			return !o.CreatedAt.Before(now.Add(-recentWindow))
		}),
	}
	report.MonthlySales, report.MonthlyRevenue = monthlySeries(orders)
	return report, nil
}

func orderQuantity(o models.Order) int { return o.Quantity }

// monthKey orders calendar months chronologically.
func monthKey(t time.Time) int {
	t = t.UTC()
	return t.Year()*12 + int(t.Month()) - 1
}

func monthLabel(key int) string {
	return time.Date(key/12, time.Month(key%12+1), 1, 0, 0, 0, 0, time.UTC).Format(monthLabelLayout)
}

// monthlySeries buckets orders by month, keeping the latest six months that
// have sales. Sales count units sold.
func monthlySeries(orders []models.Order) (models.Series[int], models.Series[float64]) {
	byMonth := collection.GroupBy(orders, func(o models.Order) int { return monthKey(o.CreatedAt) })
	keys := collection.TakeLast(collection.SortedKeys(byMonth), monthsShown)

	sales := models.Series[int]{Labels: []string{}, Data: []int{}}
	revenue := models.Series[float64]{Labels: []string{}, Data: []float64{}}
	for _, k := range keys {
		label := monthLabel(k)
		bucket := byMonth[k]

		sales.Labels = append(sales.Labels, label)
		sales.Data = append(sales.Data, collection.Sum(collection.Map(bucket, orderQuantity)))

		revenue.Labels = append(revenue.Labels, label)
		revenue.Data = append(revenue.Data, sumRevenue(bucket).Round(2).InexactFloat64())
	}
	return sales, revenue
}

func sumRevenue(orders []models.Order) decimal.Decimal {
	return collection.Reduce(orders, decimal.Zero, func(sum decimal.Decimal, o models.Order) decimal.Decimal {
		return sum.Add(decimal.NewFromFloat(o.TotalPrice))
	})
}

type performance struct {
	name     string
	quantity int
	revenue  decimal.Decimal
}

// productPerformance totals each product name, best earner first and ties
// broken by name.
func productPerformance(orders []models.Order) []models.ProductPerformance {
	byName := collection.GroupBy(orders, func(o models.Order) string { return o.ProductName })

	rows := make([]performance, 0, len(byName))
	for name, bucket := range byName {
		rows = append(rows, performance{
			name:     name,
			quantity: collection.Sum(collection.Map(bucket, orderQuantity)),
			revenue:  sumRevenue(bucket),
		})
	}
	collection.SortBy(rows, func(a, b performance) int {
		if c := b.revenue.Cmp(a.revenue); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})

	return collection.Map(rows, func(p performance) models.ProductPerformance {
		return models.ProductPerformance{
			Name:     p.name,
			Quantity: p.quantity,
			Revenue:  p.revenue.Round(2).InexactFloat64(),
		}
	})
}
