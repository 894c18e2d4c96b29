package controllers

import (
	"time"

	"apteka-backend/models"
	"apteka-backend/services"
	"apteka-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AnalyticsController контроллер отчетов: дневная сводка, шестимесячный тренд,
// нагрузка на склад, распределение поставщиков и журнал выдач
type AnalyticsController struct {
	DB        *gorm.DB
	Analytics *services.AnalyticsService
	Suppliers *services.SupplierService
	Dispenses *services.DispenseService
}

// NewAnalyticsController создает новый экземпляр AnalyticsController
func NewAnalyticsController(db *gorm.DB) *AnalyticsController {
	ledger := services.NewLedgerService(db)
	dispenses := services.NewDispenseService(db, ledger)
	return &AnalyticsController{
		DB:        db,
		Analytics: services.NewAnalyticsService(db, ledger, dispenses),
		Suppliers: services.NewSupplierService(db),
		Dispenses: dispenses,
	}
}

// DailySummaryResponse структура ответа с дневной сводкой
type DailySummaryResponse struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Summary *services.DailySummary `json:"summary,omitempty"`
}

// TrendResponse структура ответа с шестимесячным трендом
type TrendResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Trend   *services.SixMonthTrend `json:"trend,omitempty"`
}

// ImpactResponse структура ответа с отчетом о нагрузке на склад
type ImpactResponse struct {
	Success bool                        `json:"success"`
	Message string                      `json:"message"`
	Report  *services.StockImpactReport `json:"report,omitempty"`
}

// DistributionResponse структура ответа с распределением поставщиков
type DistributionResponse struct {
	Success      bool                           `json:"success"`
	Message      string                         `json:"message"`
	Distribution *services.SupplierDistribution `json:"distribution,omitempty"`
}

// RecordsResponse структура ответа с записями журнала выдач
type RecordsResponse struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message"`
	Records []models.DispenseRecord `json:"records"`
	Total   int                     `json:"total"`
}

// parseTimeParam разбирает параметр запроса как дату пояса отчетности
// или метку времени RFC3339; пустое значение означает fallback
func parseTimeParam(c *fiber.Ctx, name string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, utils.ReportingLocation()); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// GetDailySummary возвращает сводку выдач за день (по умолчанию текущий
// день в настроенном поясе отчетности)
func (ac *AnalyticsController) GetDailySummary(c *fiber.Ctx) error {
	date, ok := parseTimeParam(c, "date", time.Now())
	if !ok {
		return c.Status(400).JSON(DailySummaryResponse{
			Success: false,
			Message: "Неверный формат даты, ожидается YYYY-MM-DD",
		})
	}

	summary, err := ac.Analytics.DailySummary(c.UserContext(), date)
	if err != nil {
		return c.Status(500).JSON(DailySummaryResponse{
			Success: false,
			Message: "Ошибка при построении дневной сводки",
		})
	}

	return c.JSON(DailySummaryResponse{
		Success: true,
		Message: "Дневная сводка построена",
		Summary: summary,
	})
}

// GetSixMonthTrend возвращает тренд выдач за шесть календарных месяцев
func (ac *AnalyticsController) GetSixMonthTrend(c *fiber.Ctx) error {
	asOf, ok := parseTimeParam(c, "as_of", time.Now())
	if !ok {
		return c.Status(400).JSON(TrendResponse{
			Success: false,
			Message: "Неверный формат даты, ожидается YYYY-MM-DD",
		})
	}

	trend, err := ac.Analytics.SixMonthTrend(c.UserContext(), asOf)
	if err != nil {
		return c.Status(500).JSON(TrendResponse{
			Success: false,
			Message: "Ошибка при построении тренда",
		})
	}

	return c.JSON(TrendResponse{
		Success: true,
		Message: "Тренд построен",
		Trend:   trend,
	})
}

// GetStockImpact возвращает отчет о нагрузке на склад за текущий месяц
func (ac *AnalyticsController) GetStockImpact(c *fiber.Ctx) error {
	asOf, ok := parseTimeParam(c, "as_of", time.Now())
	if !ok {
		return c.Status(400).JSON(ImpactResponse{
			Success: false,
			Message: "Неверный формат даты, ожидается YYYY-MM-DD",
		})
	}

	report, err := ac.Analytics.StockImpactReport(c.UserContext(), asOf)
	if err != nil {
		return c.Status(500).JSON(ImpactResponse{
			Success: false,
			Message: "Ошибка при построении отчета о нагрузке",
		})
	}

	return c.JSON(ImpactResponse{
		Success: true,
		Message: "Отчет о нагрузке построен",
		Report:  report,
	})
}

// GetSupplierDistribution возвращает концентрацию закупок по категориям
func (ac *AnalyticsController) GetSupplierDistribution(c *fiber.Ctx) error {
	distribution, err := ac.Suppliers.Distribution(c.UserContext())
	if err != nil {
		return c.Status(500).JSON(DistributionResponse{
			Success: false,
			Message: "Ошибка при построении распределения поставщиков",
		})
	}

	return c.JSON(DistributionResponse{
		Success:      true,
		Message:      "Распределение поставщиков построено",
		Distribution: distribution,
	})
}

// GetDispenses возвращает записи журнала выдач в полуинтервале [start, end),
// по умолчанию за последние 30 дней
func (ac *AnalyticsController) GetDispenses(c *fiber.Ctx) error {
	now := time.Now()
	start, okStart := parseTimeParam(c, "start", now.AddDate(0, 0, -30))
	end, okEnd := parseTimeParam(c, "end", now.AddDate(0, 0, 1))
	if !okStart || !okEnd {
		return c.Status(400).JSON(RecordsResponse{
			Success: false,
			Message: "Неверный формат даты, ожидается YYYY-MM-DD",
			Records: []models.DispenseRecord{},
		})
	}

	records, err := ac.Dispenses.QueryRange(c.UserContext(), start, end)
	if err != nil {
		return c.Status(500).JSON(RecordsResponse{
			Success: false,
			Message: "Ошибка при чтении журнала выдач",
			Records: []models.DispenseRecord{},
		})
	}

	return c.JSON(RecordsResponse{
		Success: true,
		Message: "Журнал выдач получен",
		Records: records,
		Total:   len(records),
	})
}
