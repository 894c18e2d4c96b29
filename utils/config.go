package utils

import (
	"log"
	"os"
	"strconv"
	"time"
)

// DefaultExpiryWindowDays окно "скоро истекает" по умолчанию, в днях
const DefaultExpiryWindowDays = 30

// ReportingLocation возвращает настроенный часовой пояс отчетности.
// Границы суток и месяцев во всей аналитике считаются в этом поясе,
// чтобы результаты агрегации были воспроизводимы независимо от
// системного времени сервера.
func ReportingLocation() *time.Location {
	name := os.Getenv("REPORTING_TIMEZONE")
	if name == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Неверный REPORTING_TIMEZONE '%s', используется UTC: %v", name, err)
		return time.UTC
	}
	return loc
}

// ExpiryWindowDays возвращает настроенное окно "скоро истекает" в днях
func ExpiryWindowDays() int {
	raw := os.Getenv("EXPIRY_WINDOW_DAYS")
	if raw == "" {
		return DefaultExpiryWindowDays
	}

	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		log.Printf("Неверный EXPIRY_WINDOW_DAYS '%s', используется %d", raw, DefaultExpiryWindowDays)
		return DefaultExpiryWindowDays
	}
	return days
}
