package services

import (
	"context"
	"sort"
	"time"

	"apteka-backend/models"
	"apteka-backend/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Пределы отчетов
const (
	TopCategoriesLimit   = 3
	RecentDispensesLimit = 20
	TrendMonths          = 6
	UtilizationCritical  = 75.0
	UtilizationWarning   = 50.0
)

// Уровни серьезности категории в отчете о нагрузке на склад
const (
	SeverityStable   = "stable"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// CategoryQuantity суммарное количество выдач по категории
type CategoryQuantity struct {
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

// DispenseView запись выдачи в отчете, со стоимостью на момент выдачи
type DispenseView struct {
	Reference   string          `json:"reference"`
	ItemName    string          `json:"item_name"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	Reason      string          `json:"reason,omitempty"`
	DispensedAt time.Time       `json:"dispensed_at"`
	Value       decimal.Decimal `json:"value"`
}

// DailySummary сводка выдач за один календарный день пояса отчетности
type DailySummary struct {
	Date                   string             `json:"date"`
	TotalDispensedQuantity int                `json:"total_dispensed_quantity"`
	TotalDispenseEvents    int                `json:"total_dispense_events"`
	TopCategories          []CategoryQuantity `json:"top_categories"`
	RecentDispenses        []DispenseView     `json:"recent_dispenses"`
}

// TrendBucket один календарный месяц шестимесячного тренда.
// ChangeFromPrevious равен nil, когда предыдущий месяц пуст: неопределенный
// процент роста должен отображаться отлично от настоящего нуля.
type TrendBucket struct {
	Label              string             `json:"label"`
	TotalDispensed     int                `json:"total_dispensed"`
	CategoryBreakdown  []CategoryQuantity `json:"category_breakdown"`
	ChangeFromPrevious *float64           `json:"change_from_previous"`
}

// SixMonthTrend шесть месячных корзин, от старшей к текущей
type SixMonthTrend struct {
	Buckets                 []TrendBucket `json:"buckets"`
	AverageMonthlyDispensed float64       `json:"average_monthly_dispensed"`
	PeakMonth               string        `json:"peak_month"`
}

// CategoryImpact нагрузка на склад в разрезе одной категории
type CategoryImpact struct {
	Category           string  `json:"category"`
	CurrentStock       int     `json:"current_stock"`
	DispensedThisMonth int     `json:"dispensed_this_month"`
	LowStockCount      int     `json:"low_stock_count"`
	OutOfStockCount    int     `json:"out_of_stock_count"`
	Utilization        float64 `json:"utilization"`
	Severity           string  `json:"severity"`
}

// CriticalItem товар в нездоровом статусе, аннотированный статусом
type CriticalItem struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
	MinRequired int    `json:"min_required"`
	Status      string `json:"status"`
}

// ImpactTotals сквозные итоги отчета, ключевые показатели для заголовка
type ImpactTotals struct {
	CurrentStock            int `json:"current_stock"`
	MinRequired             int `json:"min_required"`
	TotalItems              int `json:"total_items"`
	TotalLowStock           int `json:"total_low_stock"`
	TotalOutOfStock         int `json:"total_out_of_stock"`
	TotalDispensedThisMonth int `json:"total_dispensed_this_month"`
}

// StockImpactReport отчет о нагрузке и утилизации склада за текущий месяц
type StockImpactReport struct {
	Categories    []CategoryImpact `json:"categories"`
	CriticalItems []CriticalItem   `json:"critical_items"`
	Totals        ImpactTotals     `json:"totals"`
}

// AnalyticsService строит отчеты по требованию, без предматериализации:
// каждый отчет пересчитывается из журнала выдач и текущих остатков,
// поэтому никогда не устаревает и не дублирует счетчики склада
type AnalyticsService struct {
	db        *gorm.DB
	ledger    *LedgerService
	dispenses *DispenseService
}

// NewAnalyticsService создает новый экземпляр AnalyticsService
func NewAnalyticsService(db *gorm.DB, ledger *LedgerService, dispenses *DispenseService) *AnalyticsService {
	return &AnalyticsService{db: db, ledger: ledger, dispenses: dispenses}
}

// topCategories сворачивает карту категорий в топ limit по убыванию количества,
// при равенстве — по имени категории по возрастанию
func topCategories(byCategory map[string]int, limit int) []CategoryQuantity {
	result := make([]CategoryQuantity, 0, len(byCategory))
	for category, quantity := range byCategory {
		result = append(result, CategoryQuantity{Category: category, Quantity: quantity})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Quantity != result[j].Quantity {
			return result[i].Quantity > result[j].Quantity
		}
		return result[i].Category < result[j].Category
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// DailySummary строит сводку за календарный день date в поясе отчетности
func (s *AnalyticsService) DailySummary(ctx context.Context, date time.Time) (*DailySummary, error) {
	loc := utils.ReportingLocation()
	local := date.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	records, err := s.dispenses.QueryRange(ctx, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	summary := &DailySummary{
		Date:            dayStart.Format("2006-01-02"),
		TopCategories:   []CategoryQuantity{},
		RecentDispenses: []DispenseView{},
	}

	byCategory := make(map[string]int)
	for _, r := range records {
		summary.TotalDispensedQuantity += r.Quantity
		summary.TotalDispenseEvents++
		byCategory[r.Category] += r.Quantity
	}
	summary.TopCategories = topCategories(byCategory, TopCategoriesLimit)

	// Последние выдачи дня: диапазон отсортирован по возрастанию,
	// поэтому идем с конца
	for i := len(records) - 1; i >= 0 && len(summary.RecentDispenses) < RecentDispensesLimit; i-- {
		r := records[i]
		summary.RecentDispenses = append(summary.RecentDispenses, DispenseView{
			Reference:   r.Reference,
			ItemName:    r.ItemName,
			Category:    r.Category,
			Quantity:    r.Quantity,
			Reason:      r.Reason,
			DispensedAt: r.DispensedAt,
			Value:       r.Value(),
		})
	}

	return summary, nil
}

// SixMonthTrend строит шесть календарных месячных корзин, заканчивающихся
// месяцем asOf, от старшей к новой. Суммы корзин в точности складываются
// в сумму QueryRange по всему интервалу: запись попадает ровно в одну корзину.
func (s *AnalyticsService) SixMonthTrend(ctx context.Context, asOf time.Time) (*SixMonthTrend, error) {
	loc := utils.ReportingLocation()
	local := asOf.In(loc)
	spanStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, -(TrendMonths - 1), 0)
	spanEnd := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)

	records, err := s.dispenses.QueryRange(ctx, spanStart, spanEnd)
	if err != nil {
		return nil, err
	}

	totals := make([]int, TrendMonths)
	breakdowns := make([]map[string]int, TrendMonths)
	for i := range breakdowns {
		breakdowns[i] = make(map[string]int)
	}

	for _, r := range records {
		at := r.DispensedAt.In(loc)
		idx := (at.Year()-spanStart.Year())*12 + int(at.Month()) - int(spanStart.Month())
		if idx < 0 || idx >= TrendMonths {
			continue
		}
		totals[idx] += r.Quantity
		breakdowns[idx][r.Category] += r.Quantity
	}

	trend := &SixMonthTrend{Buckets: make([]TrendBucket, 0, TrendMonths)}
	sum := 0
	peakIdx := 0
	for i := 0; i < TrendMonths; i++ {
		monthStart := spanStart.AddDate(0, i, 0)
		bucket := TrendBucket{
			Label:             monthStart.Format("January 2006"),
			TotalDispensed:    totals[i],
			CategoryBreakdown: topCategories(breakdowns[i], TopCategoriesLimit),
		}
		// Процент изменения не определен, если предыдущий месяц пуст
		if i > 0 && totals[i-1] > 0 {
			change := float64(totals[i]-totals[i-1]) / float64(totals[i-1]) * 100
			bucket.ChangeFromPrevious = &change
		}
		trend.Buckets = append(trend.Buckets, bucket)

		sum += totals[i]
		// При равенстве пиковым считается более поздний месяц
		if totals[i] >= totals[peakIdx] {
			peakIdx = i
		}
	}

	trend.AverageMonthlyDispensed = float64(sum) / float64(TrendMonths)
	trend.PeakMonth = trend.Buckets[peakIdx].Label

	return trend, nil
}

// severityFor классифицирует категорию по счетчикам статусов и утилизации.
// Правила проверяются по порядку: critical -> warning -> stable.
func severityFor(outOfStock, lowStock int, utilization float64) string {
	if outOfStock > 0 || utilization >= UtilizationCritical {
		return SeverityCritical
	}
	if lowStock > 0 || utilization >= UtilizationWarning {
		return SeverityWarning
	}
	return SeverityStable
}

// StockImpactReport строит отчет о нагрузке на склад за календарный месяц asOf
func (s *AnalyticsService) StockImpactReport(ctx context.Context, asOf time.Time) (*StockImpactReport, error) {
	loc := utils.ReportingLocation()
	local := asOf.In(loc)
	monthStart := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	monthEnd := monthStart.AddDate(0, 1, 0)

	// Остатки и журнал читаются в одной транзакции: отчет видит согласованный
	// снимок на момент вызова, выдача между двумя запросами не попадает
	// в знаменатель утилизации дважды
	var items []models.InventoryItem
	var records []models.DispenseRecord
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("name ASC").Find(&items).Error; err != nil {
			return err
		}
		return tx.Where("dispensed_at >= ? AND dispensed_at < ?", monthStart, monthEnd).
			Order("dispensed_at ASC").
			Find(&records).Error
	})
	if err != nil {
		return nil, err
	}

	dispensedByCategory := make(map[string]int)
	for _, r := range records {
		dispensedByCategory[r.Category] += r.Quantity
	}

	type categoryAgg struct {
		stock    int
		lowStock int
		outStock int
	}
	byCategory := make(map[string]*categoryAgg)
	for _, category := range models.ValidCategories() {
		if _, ok := dispensedByCategory[category]; ok {
			byCategory[category] = &categoryAgg{}
		}
	}

	report := &StockImpactReport{
		Categories:    []CategoryImpact{},
		CriticalItems: []CriticalItem{},
	}

	for idx := range items {
		item := &items[idx]
		agg, ok := byCategory[item.Category]
		if !ok {
			agg = &categoryAgg{}
			byCategory[item.Category] = agg
		}
		agg.stock += item.Quantity
		switch item.Status {
		case models.StatusOutOfStock:
			agg.outStock++
		case models.StatusLowStock:
			agg.lowStock++
		}

		report.Totals.TotalItems++
		report.Totals.CurrentStock += item.Quantity
		report.Totals.MinRequired += item.MinRequired

		if item.Status == models.StatusOutOfStock || item.Status == models.StatusLowStock {
			report.CriticalItems = append(report.CriticalItems, CriticalItem{
				ID:          item.ID,
				Name:        item.Name,
				Category:    item.Category,
				Quantity:    item.Quantity,
				MinRequired: item.MinRequired,
				Status:      item.Status,
			})
		}
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		agg := byCategory[name]
		dispensed := dispensedByCategory[name]

		// Доля доступного за период запаса, израсходованная за период;
		// при пустых слагаемых утилизация равна нулю, деления на ноль нет
		utilization := 0.0
		if agg.stock+dispensed > 0 {
			utilization = float64(dispensed) / float64(agg.stock+dispensed) * 100
		}

		report.Categories = append(report.Categories, CategoryImpact{
			Category:           name,
			CurrentStock:       agg.stock,
			DispensedThisMonth: dispensed,
			LowStockCount:      agg.lowStock,
			OutOfStockCount:    agg.outStock,
			Utilization:        utilization,
			Severity:           severityFor(agg.outStock, agg.lowStock, utilization),
		})

		report.Totals.TotalLowStock += agg.lowStock
		report.Totals.TotalOutOfStock += agg.outStock
		report.Totals.TotalDispensedThisMonth += dispensed
	}

	// Закончившиеся товары раньше товаров с низким остатком, далее по имени
	sort.Slice(report.CriticalItems, func(i, j int) bool {
		a, b := report.CriticalItems[i], report.CriticalItems[j]
		if a.Status != b.Status {
			return a.Status == models.StatusOutOfStock
		}
		return a.Name < b.Name
	})

	return report, nil
}
