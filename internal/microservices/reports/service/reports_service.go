package service

import (
	"context"
	"io"
	"time"

	"restaurant-pos/internal/core/billing"
	"restaurant-pos/internal/microservices/reports/models"
	"restaurant-pos/internal/microservices/reports/repository"
)

const (
	summaryDays   = 7
	topItemsCount = 5
	recentBills   = 10
)

type ReportsServiceInterface interface {
	Bills(ctx context.Context, days, limit int) ([]billing.Bill, error)
	ExportCSV(ctx context.Context, w io.Writer, days int) error
	Summary(ctx context.Context) (models.Summary, error)
	Workers(ctx context.Context) ([]models.WorkerStatus, error)
}

type ReportsService struct {
	repo *repository.Repository
	now  func() time.Time
}

func NewReportsService(repo *repository.Repository) *ReportsService {
	return &ReportsService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// since is midnight UTC days-1 days ago, so days=1 means today.
func (s *ReportsService) since(days int) time.Time {
	if days <= 0 {
		return time.Time{}
	}
	n := s.now().UTC()
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, 1-days)
}

// Bills returns bills of the last days days, oldest first. days <= 0 returns
// the whole history.
func (s *ReportsService) Bills(ctx context.Context, days, limit int) ([]billing.Bill, error) {
	return s.repo.BillRepo.List(ctx, s.since(days), limit)
}

func (s *ReportsService) ExportCSV(ctx context.Context, w io.Writer, days int) error {
	bills, err := s.repo.BillRepo.List(ctx, s.since(days), 0)
	if err != nil {
		return err
	}
	return billing.ExportCSV(w, bills)
}

func (s *ReportsService) Summary(ctx context.Context) (models.Summary, error) {
	now := s.now()
	bills, err := s.repo.BillRepo.List(ctx, s.since(summaryDays), 0)
	if err != nil {
		return models.Summary{}, err
	}

	todayBills := 0
	day := now.Format("2006-01-02")
	for _, b := range bills {
		if b.CreatedAt.UTC().Format("2006-01-02") == day {
			todayBills++
		}
	}
	recent := make([]billing.Bill, 0, recentBills)
	for i := len(bills) - 1; i >= 0 && len(recent) < recentBills; i-- {
		recent = append(recent, bills[i])
	}

	return models.Summary{
		GeneratedAt: now,
		Revenue:     billing.DailyRevenue(bills, now, summaryDays),
		TopItems:    billing.TopItems(bills, now, topItemsCount),
		TodaySales:  billing.SalesOn(bills, now),
		TodayBills:  todayBills,
		Recent:      recent,
	}, nil
}

func (s *ReportsService) Workers(ctx context.Context) ([]models.WorkerStatus, error) {
	return s.repo.WorkerRepo.ListWorkers(ctx)
}
