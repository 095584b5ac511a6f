package orders

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vladislavdragonenkov/orderhub/internal/domain"
)

// SortBy задаёт порядок выдачи списка заказов.
type SortBy string

const (
	// SortByDate: сначала новые по дате заказа.
	SortByDate SortBy = "date"
	// SortByAmount: сначала самые крупные по сумме.
	SortByAmount SortBy = "amount"
	// SortByClient: по имени клиента с учётом правил сравнения локали.
	SortByClient SortBy = "client"
)

// StatusAll отключает фильтр по статусу.
const StatusAll domain.OrderStatus = "all"

// RecentLimit: сколько заказов показывает блок последних заказов.
const RecentLimit = 5

var (
	// ErrInvalidSort возвращается для неизвестного режима сортировки.
	ErrInvalidSort = errors.New("unknown sort mode")
	// ErrInvalidStatusFilter возвращается для неизвестного фильтра статуса.
	ErrInvalidStatusFilter = errors.New("unknown status filter")
)

// Query описывает фильтрацию и сортировку списка.
type Query struct {
	Search string
	Status domain.OrderStatus
	SortBy SortBy
	// Locale определяет правила сравнения имён; language.Und даёт корневую коллацию.
	Locale language.Tag
}

// ParseSortBy разбирает режим сортировки; пустая строка означает сортировку по дате.
func ParseSortBy(raw string) (SortBy, error) {
	switch sortBy := SortBy(strings.ToLower(strings.TrimSpace(raw))); sortBy {
	case "":
		return SortByDate, nil
	case SortByDate, SortByAmount, SortByClient:
		return sortBy, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSort, raw)
	}
}

// ParseStatusFilter разбирает фильтр статуса; пустая строка и "all" отключают фильтр.
func ParseStatusFilter(raw string) (domain.OrderStatus, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == string(StatusAll) {
		return StatusAll, nil
	}
	status, err := domain.ParseOrderStatus(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatusFilter, raw)
	}
	return status, nil
}

// FilterAndSort применяет поиск, затем фильтр статуса, затем стабильную сортировку.
// Входной слайс не изменяется.
func FilterAndSort(orders []domain.Order, q Query) []domain.Order {
	result := make([]domain.Order, 0, len(orders))

	search := ""
	fold := cases.Fold()
	if q.Search != "" {
		search = fold.String(q.Search)
	}

	for _, order := range orders {
		if search != "" &&
			!strings.Contains(fold.String(order.ClientName), search) &&
			!strings.Contains(fold.String(order.ID), search) {
			continue
		}
		if q.Status != "" && q.Status != StatusAll && order.Status != q.Status {
			continue
		}
		result = append(result, order.Clone())
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = SortByDate
	}

	switch sortBy {
	case SortByDate:
		sortByDateDesc(result)
	case SortByAmount:
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].Total.GreaterThan(result[j].Total)
		})
	case SortByClient:
		collator := collate.New(q.Locale)
		sort.SliceStable(result, func(i, j int) bool {
			return collator.CompareString(result[i].ClientName, result[j].ClientName) < 0
		})
	}

	return result
}

func sortByDateDesc(orders []domain.Order) {
	dates := make(map[string]time.Time, len(orders))
	valid := make(map[string]bool, len(orders))
	for _, order := range orders {
		if _, seen := valid[order.Date]; seen {
			continue
		}
		parsed, err := domain.ParseDate(order.Date)
		dates[order.Date] = parsed
		valid[order.Date] = err == nil
	}

	sort.SliceStable(orders, func(i, j int) bool {
		left, right := orders[i].Date, orders[j].Date
		switch {
		case valid[left] && valid[right]:
			return dates[left].After(dates[right])
		case valid[left]:
			return true
		default:
			return false
		}
	})
}

// DashboardStats: агрегаты для панели управления.
type DashboardStats struct {
	Count          int
	Revenue        decimal.Decimal
	PendingCount   int
	PaidCount      int
	DeliveredCount int
}

// DeliveredPercentage возвращает долю доставленных заказов в процентах; 0 для пустой коллекции.
func (s DashboardStats) DeliveredPercentage() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.DeliveredCount) / float64(s.Count) * 100
}

// MarshalJSON пишет выручку числом и добавляет процент доставленных.
func (s DashboardStats) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count               int         `json:"count"`
		Revenue             json.Number `json:"revenue"`
		PendingCount        int         `json:"pending"`
		PaidCount           int         `json:"paid"`
		DeliveredCount      int         `json:"delivered"`
		DeliveredPercentage float64     `json:"deliveredPercentage"`
	}{
		Count:               s.Count,
		Revenue:             json.Number(s.Revenue.String()),
		PendingCount:        s.PendingCount,
		PaidCount:           s.PaidCount,
		DeliveredCount:      s.DeliveredCount,
		DeliveredPercentage: s.DeliveredPercentage(),
	})
}

// ComputeDashboardStats считает агрегаты; выручка включает заказы в любом статусе.
func ComputeDashboardStats(orders []domain.Order) DashboardStats {
	stats := DashboardStats{
		Count:   len(orders),
		Revenue: decimal.Zero,
	}
	for _, order := range orders {
		stats.Revenue = stats.Revenue.Add(order.Total)
		switch order.Status {
		case domain.OrderStatusPending:
			stats.PendingCount++
		case domain.OrderStatusPaid:
			stats.PaidCount++
		case domain.OrderStatusDelivered:
			stats.DeliveredCount++
		}
	}
	return stats
}

// RecentOrders возвращает последние n добавленных заказов, начиная с самого нового.
func RecentOrders(orders []domain.Order, n int) []domain.Order {
	if n <= 0 {
		return []domain.Order{}
	}
	if n > len(orders) {
		n = len(orders)
	}

	result := make([]domain.Order, 0, n)
	for i := len(orders) - 1; i >= len(orders)-n; i-- {
		result = append(result, orders[i].Clone())
	}
	return result
}

// FormatAmount форматирует сумму для отображения: "$" и два знака после запятой.
func FormatAmount(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}

// FormatPercentage округляет процент до целого.
func FormatPercentage(p float64) string {
	return decimal.NewFromFloat(p).Round(0).String() + "%"
}
