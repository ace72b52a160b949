package billing

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

var csvHeader = []string{"Date/Time", "OrderID", "Source", "Details", "Total"}

// ExportCSV writes one row per bill in the order given.
func ExportCSV(w io.Writer, bills []Bill) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bills {
		details := make([]string, 0, len(b.Lines))
		for _, l := range b.Lines {
			details = append(details, fmt.Sprintf("%s (x%d)", l.Name, l.Quantity))
		}
		row := []string{
			b.CreatedAt.Format(time.RFC3339),
			b.BillID,
			b.SourceLabel,
			strings.Join(details, "; "),
			b.GrandTotal.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type DayRevenue struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
}

// DailyRevenue sums grand totals per UTC day for the last days days ending
// with now, oldest first. Days without bills are reported as zero.
func DailyRevenue(bills []Bill, now time.Time, days int) []DayRevenue {
	if days <= 0 {
		return nil
	}
	out := make([]DayRevenue, days)
	pos := make(map[string]int, days)
	today := now.UTC()
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i-days+1).Format(dayLayout)
		out[i] = DayRevenue{Date: d, Total: decimal.Zero}
		pos[d] = i
	}
	for _, b := range bills {
		if i, ok := pos[b.CreatedAt.UTC().Format(dayLayout)]; ok {
			out[i].Total = out[i].Total.Add(b.GrandTotal)
		}
	}
	return out
}

type ItemCount struct {
	Name  string `json:"name"`
	Units int    `json:"units"`
}

// TopItems ranks items by units sold on the UTC day of day. Ties are broken by
// name so the result is stable.
func TopItems(bills []Bill, day time.Time, n int) []ItemCount {
	want := day.UTC().Format(dayLayout)
	counts := map[string]int{}
	for _, b := range bills {
		if b.CreatedAt.UTC().Format(dayLayout) != want {
			continue
		}
		for _, l := range b.Lines {
			counts[l.Name] += l.Quantity
		}
	}
	out := make([]ItemCount, 0, len(counts))
	for name, u := range counts {
		out = append(out, ItemCount{Name: name, Units: u})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].Name < out[j].Name
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SalesOn is the sum of grand totals billed on the UTC day of day.
func SalesOn(bills []Bill, day time.Time) decimal.Decimal {
	want := day.UTC().Format(dayLayout)
	total := decimal.Zero
	for _, b := range bills {
		if b.CreatedAt.UTC().Format(dayLayout) == want {
			total = total.Add(b.GrandTotal)
		}
	}
	return total
}
