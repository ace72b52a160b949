package models

import (
	"time"

	"github.com/shopspring/decimal"

	"restaurant-pos/internal/core/billing"
)

// Summary feeds the dashboard: the revenue chart, today's best sellers and
// the latest bills.
type Summary struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Revenue     []billing.DayRevenue `json:"revenue"`
	TopItems    []billing.ItemCount  `json:"topItems"`
	TodaySales  decimal.Decimal      `json:"todaySales"`
	TodayBills  int                  `json:"todayBills"`
	Recent      []billing.Bill       `json:"recent"`
}

type WorkerStatus struct {
	WorkerName      string    `json:"worker_name"`
	Kinds           string    `json:"kinds"`
	Status          string    `json:"status"` // "online" | "offline"
	OrdersProcessed int       `json:"orders_processed"`
	LastSeen        time.Time `json:"last_seen"`
}
