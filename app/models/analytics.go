package models

// Series is a labelled chart series; Labels and Data are index-aligned.
type Series[T any] struct {
	Labels []string `json:"labels"`
	Data   []T      `json:"data"`
}

type ProductPerformance struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

type StockLevel struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Status   string `json:"status"`
}

// FarmerAnalytics is the per-farmer dashboard report.
type FarmerAnalytics struct {
	FarmerEmail        string               `json:"farmer_email"`
	TotalSales         int                  `json:"total_sales"`
	TotalRevenue       float64              `json:"total_revenue"`
	TotalQuantitySold  int                  `json:"total_quantity_sold"`
	MonthlySales       Series[int]          `json:"monthly_sales"`
	MonthlyRevenue     Series[float64]      `json:"monthly_revenue"`
	ProductPerformance []ProductPerformance `json:"product_performance"`
	CurrentStock       int                  `json:"current_stock"`
	StockDistribution  []StockLevel         `json:"stock_distribution"`
	RecentOrders7Days  int                  `json:"recent_orders_7days"`
}
