package routes

import (
	"apteka-backend/controllers"

	"github.com/gofiber/fiber/v2"
)

// SetupAnalyticsRoutes настраивает маршруты отчетов и журнала выдач
func SetupAnalyticsRoutes(app *fiber.App, analyticsController *controllers.AnalyticsController) {
	analytics := app.Group("/api/analytics")

	// GET /api/analytics/daily-summary - сводка выдач за день
	analytics.Get("/daily-summary", analyticsController.GetDailySummary)

	// GET /api/analytics/six-month-trend - тренд выдач за шесть месяцев
	analytics.Get("/six-month-trend", analyticsController.GetSixMonthTrend)

	// GET /api/analytics/stock-impact - нагрузка на склад за текущий месяц
	analytics.Get("/stock-impact", analyticsController.GetStockImpact)

	// GET /api/analytics/supplier-distribution - концентрация закупок по категориям
	analytics.Get("/supplier-distribution", analyticsController.GetSupplierDistribution)

	// GET /api/dispenses - журнал выдач за период
	app.Get("/api/dispenses", analyticsController.GetDispenses)
}
