package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"apteka-backend/models"
	"apteka-backend/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupAnalytics создает сервисы аналитики поверх тестовой базы
func setupAnalytics(db *gorm.DB) *services.AnalyticsService {
	ledger := services.NewLedgerService(db)
	dispenses := services.NewDispenseService(db, ledger)
	return services.NewAnalyticsService(db, ledger, dispenses)
}

func TestDailySummaryAggregation(t *testing.T) {
	db := setupTestDB()
	analytics := setupAnalytics(db)

	medicine := createTestItem(db, "Парацетамол 500мг", models.CategoryMedicine, 100, 10, "10.00")
	supply := createTestItem(db, "Бинт стерильный", models.CategorySupply, 100, 10, "5.50")
	equipment := createTestItem(db, "Тонометр", models.CategoryEquipment, 100, 10, "2450.00")
	lab := createTestItem(db, "Пробирки лабораторные", models.CategoryLabSupplies, 100, 10, "6.75")

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	createTestRecord(db, medicine, 5, day.Add(9*time.Hour))
	createTestRecord(db, medicine, 7, day.Add(11*time.Hour))
	createTestRecord(db, supply, 8, day.Add(12*time.Hour))
	createTestRecord(db, equipment, 2, day.Add(14*time.Hour))
	createTestRecord(db, lab, 1, day.Add(16*time.Hour))

	// Записи соседних дней не попадают в сводку
	createTestRecord(db, medicine, 100, day.Add(-2*time.Hour))
	createTestRecord(db, medicine, 100, day.Add(25*time.Hour))

	summary, err := analytics.DailySummary(context.Background(), day.Add(13*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "2026-03-10", summary.Date)
	assert.Equal(t, 23, summary.TotalDispensedQuantity)
	assert.Equal(t, 5, summary.TotalDispenseEvents)

	// Топ-3 категории по убыванию количества, четвертая отсечена
	require.Len(t, summary.TopCategories, 3)
	assert.Equal(t, models.CategoryMedicine, summary.TopCategories[0].Category)
	assert.Equal(t, 12, summary.TopCategories[0].Quantity)
	assert.Equal(t, models.CategorySupply, summary.TopCategories[1].Category)
	assert.Equal(t, 8, summary.TopCategories[1].Quantity)
	assert.Equal(t, models.CategoryEquipment, summary.TopCategories[2].Category)

	// Последние выдачи идут от новых к старым, стоимость равна цене на момент
	// выдачи умноженной на количество
	require.Len(t, summary.RecentDispenses, 5)
	assert.Equal(t, "Пробирки лабораторные", summary.RecentDispenses[0].ItemName)
	assert.True(t, summary.RecentDispenses[0].Value.Equal(lab.UnitPrice))
	assert.Equal(t, "Тонометр", summary.RecentDispenses[1].ItemName)
	assert.True(t, summary.RecentDispenses[1].Value.Equal(equipment.UnitPrice.Mul(decimal.NewFromInt(2))))
}

func TestDailySummaryTopCategoriesTieBreak(t *testing.T) {
	db := setupTestDB()
	analytics := setupAnalytics(db)

	medicine := createTestItem(db, "Парацетамол 500мг", models.CategoryMedicine, 100, 10, "10.00")
	equipment := createTestItem(db, "Тонометр", models.CategoryEquipment, 100, 10, "2450.00")

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	createTestRecord(db, medicine, 5, day.Add(9*time.Hour))
	createTestRecord(db, equipment, 5, day.Add(10*time.Hour))

	summary, err := analytics.DailySummary(context.Background(), day)
	require.NoError(t, err)

	// При равных количествах категории упорядочены по имени
	require.Len(t, summary.TopCategories, 2)
	assert.Equal(t, models.CategoryEquipment, summary.TopCategories[0].Category)
	assert.Equal(t, models.CategoryMedicine, summary.TopCategories[1].Category)
}

func TestDailySummaryIdempotentReads(t *testing.T) {
	db := setupTestDB()
	analytics := setupAnalytics(db)

	medicine := createTestItem(db, "Парацетамол 500мг", models.CategoryMedicine, 100, 10, "10.00")
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	createTestRecord(db, medicine, 5, day.Add(9*time.Hour))

	first, err := analytics.DailySummary(context.Background(), day)
	require.NoError(t, err)
	second, err := analytics.DailySummary(context.Background(), day)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSixMonthTrendBuckets(t *testing.T) {
	db := setupTestDB()
	ledger := services.NewLedgerService(db)
	dispenses := services.NewDispenseService(db, ledger)
	analytics := services.NewAnalyticsService(db, ledger, dispenses)

	medicine := createTestItem(db, "Парацетамол 500мг", models.CategoryMedicine, 1000, 10, "10.00")

	// Январь 10, февраль 0, март 50, апрель 20, май 0, июнь 30
	createTestRecord(db, medicine, 10, time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))
	createTestRecord(db, medicine, 50, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	createTestRecord(db, medicine, 20, time.Date(2026, 4, 30, 23, 59, 59, 0, time.UTC))
	createTestRecord(db, medicine, 30, time.Date(2026, 6, 10, 12, 0, 0, 0, time.UTC))

	asOf := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	trend, err := analytics.SixMonthTrend(context.Background(), asOf)
	require.NoError(t, err)

	require.Len(t, trend.Buckets, 6)
	assert.Equal(t, "January 2026", trend.Buckets[0].Label)
	assert.Equal(t, "June 2026", trend.Buckets[5].Label)

	totals := []int{10, 0, 50, 20, 0, 30}
	for i, expected := range totals {
		assert.Equal(t, expected, trend.Buckets[i].TotalDispensed, trend.Buckets[i].Label)
	}

	// Суммы корзин в точности складываются в сумму полного диапазона
	spanStart := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	spanEnd := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	records, err := dispenses.QueryRange(context.Background(), spanStart, spanEnd)
	require.NoError(t, err)
	rangeTotal := 0
	for _, r := range records {
		rangeTotal += r.Quantity
	}
	bucketTotal := 0
	for _, b := range trend.Buckets {
		bucketTotal += b.TotalDispensed
	}
	assert.Equal(t, rangeTotal, bucketTotal)

	// Январь без предыдущего месяца
	assert.Nil(t, trend.Buckets[0].ChangeFromPrevious)
	// Февраль: падение со 10 до 0 это настоящие -100%
	require.NotNil(t, trend.Buckets[1].ChangeFromPrevious)
	assert.InDelta(t, -100.0, *trend.Buckets[1].ChangeFromPrevious, 0.001)
	// Март: предыдущий месяц пуст, процент изменения не определен, а не ноль
	assert.Nil(t, trend.Buckets[2].ChangeFromPrevious)
	// Апрель: (20-50)/50
	require.NotNil(t, trend.Buckets[3].ChangeFromPrevious)
	assert.InDelta(t, -60.0, *trend.Buckets[3].ChangeFromPrevious, 0.001)
	// Июнь: предыдущий месяц пуст
	assert.Nil(t, trend.Buckets[5].ChangeFromPrevious)

	// Среднее учитывает и пустые месяцы
	assert.InDelta(t, 110.0/6.0, trend.AverageMonthlyDispensed, 0.001)
	assert.Equal(t, "March 2026", trend.PeakMonth)
}

func TestSixMonthTrendPeakTieGoesToRecent(t *testing.T) {
	db := setupTestDB()
	analytics := setupAnalytics(db)

	medicine := createTestItem(db, "Парацетамол 500мг", models.CategoryMedicine, 1000, 10, "10.00")
	createTestRecord(db, medicine, 40, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	createTestRecord(db, medicine, 40, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC))

	asOf := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	trend, err := analytics.SixMonthTrend(context.Background(), asOf)
	require.NoError(t, err)

	assert.Equal(t, "May 2026", trend.PeakMonth)
}

func TestStockImpactSeverityClassification(t *testing.T) {
	db := setupTestDB()
	analytics := setupAnalytics(db)

	// Medicine: один товар закончился, утилизация 40% -> critical по остатку
	createTestItem(db, "Аспирин", models.CategoryMedicine, 0, 5, "10.00")
	paracetamol := createTestItem(db, "Парацетамол", models.CategoryMedicine, 30, 5, "10.00")

	// Supply: утилизация 80% без нехватки -> critical по утилизации
	bandage := createTestItem(db, "Бинт", models.CategorySupply, 10, 2, "5.00")

	// Equipment: низкий остаток -> warning
	scales := createTestItem(db, "Весы", models.CategoryEquipment, 1, 3, "900.00")

	// Lab Supplies: здоровый остаток без выдач -> stable, утилизация ноль
	createTestItem(db, "Пробирки", models.CategoryLabSupplies, 100, 10, "6.75")

	asOf := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	inMonth := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	createTestRecord(db, paracetamol, 20, inMonth)
	createTestRecord(db, bandage, 40, inMonth)

	// Выдача прошлого месяца не учитывается в текущем
	createTestRecord(db, scales, 5, time.Date(2026, 7, 20, 9, 0, 0, 0, time.UTC))

	report, err := analytics.StockImpactReport(context.Background(), asOf)
	require.NoError(t, err)

	byCategory := make(map[string]services.CategoryImpact)
	for _, c := range report.Categories {
		byCategory[c.Category] = c
	}

	medicine := byCategory[models.CategoryMedicine]
	assert.Equal(t, 30, medicine.CurrentStock)
	assert.Equal(t, 20, medicine.DispensedThisMonth)
	assert.Equal(t, 1, medicine.OutOfStockCount)
	assert.InDelta(t, 40.0, medicine.Utilization, 0.001)
	assert.Equal(t, services.SeverityCritical, medicine.Severity)

	supply := byCategory[models.CategorySupply]
	assert.Equal(t, 0, supply.OutOfStockCount)
	assert.InDelta(t, 80.0, supply.Utilization, 0.001)
	assert.Equal(t, services.SeverityCritical, supply.Severity)

	equipment := byCategory[models.CategoryEquipment]
	assert.Equal(t, 1, equipment.LowStockCount)
	assert.Equal(t, 0, equipment.DispensedThisMonth)
	assert.Equal(t, services.SeverityWarning, equipment.Severity)

	lab := byCategory[models.CategoryLabSupplies]
	assert.InDelta(t, 0.0, lab.Utilization, 0.001)
	assert.Equal(t, services.SeverityStable, lab.Severity)

	// Закончившиеся раньше низких, далее по имени
	require.Len(t, report.CriticalItems, 2)
	assert.Equal(t, "Аспирин", report.CriticalItems[0].Name)
	assert.Equal(t, models.StatusOutOfStock, report.CriticalItems[0].Status)
	assert.Equal(t, "Весы", report.CriticalItems[1].Name)
	assert.Equal(t, models.StatusLowStock, report.CriticalItems[1].Status)

	// Сквозные итоги
	assert.Equal(t, 141, report.Totals.CurrentStock)
	assert.Equal(t, 25, report.Totals.MinRequired)
	assert.Equal(t, 5, report.Totals.TotalItems)
	assert.Equal(t, 1, report.Totals.TotalLowStock)
	assert.Equal(t, 1, report.Totals.TotalOutOfStock)
	assert.Equal(t, 60, report.Totals.TotalDispensedThisMonth)
}

func TestAnalyticsEndpoints(t *testing.T) {
	db := setupTestDB()
	app := createTestApp(db)

	medicine := createTestItem(db, "Парацетамол 500мг", models.CategoryMedicine, 100, 10, "10.00")
	createTestRecord(db, medicine, 5, time.Now())

	paths := []string{
		"/api/analytics/daily-summary",
		"/api/analytics/six-month-trend",
		"/api/analytics/stock-impact",
		"/api/analytics/supplier-distribution",
		"/api/dispenses",
	}
	for _, path := range paths {
		req := httptest.NewRequest("GET", path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err, path)
		assert.Equal(t, 200, resp.StatusCode, path)
	}

	// Неверная дата отклоняется на границе
	req := httptest.NewRequest("GET", "/api/analytics/daily-summary?date=not-a-date", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
