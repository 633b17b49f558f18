package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Вспомогательные функции для временных операций: фильтрация
// истории оценок по диапазонам, окна cooldown, возраст снимков.

// TimeRange представляет временной диапазон
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains проверяет, попадает ли время в диапазон
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && !t.After(tr.End)
}

// Duration возвращает продолжительность диапазона
func (tr TimeRange) Duration() time.Duration {
	return tr.End.Sub(tr.Start)
}

// GetLastNDays возвращает диапазон последних n дней (включая сегодня)
func GetLastNDays(n int) TimeRange {
	if n <= 0 {
		n = 1
	}
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -(n - 1))
	return TimeRange{
		Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		End:   now,
	}
}

// GetLastNHours возвращает диапазон последних n часов
func GetLastNHours(n int) TimeRange {
	if n <= 0 {
		n = 1
	}
	now := time.Now().UTC()
	return TimeRange{
		Start: now.Add(-time.Duration(n) * time.Hour),
		End:   now,
	}
}

// WithinWindow проверяет, прошло ли с момента last меньше window.
// Нулевое last означает, что событие еще не происходило.
func WithinWindow(last, now time.Time, window time.Duration) bool {
	if last.IsZero() {
		return false
	}
	return now.Sub(last) < window
}

// Age возвращает возраст отметки времени относительно now.
// Будущие отметки дают 0.
func Age(t, now time.Time) time.Duration {
	d := now.Sub(t)
	if d < 0 {
		return 0
	}
	return d
}

// FormatDuration форматирует продолжительность в человекочитаемый формат
//
// Примеры:
//   - "45s"
//   - "5m30s"
//   - "2h15m"
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}

	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		if hours > 0 {
			return (time.Duration(days*24+hours) * time.Hour).String()
		}
		return (time.Duration(days*24) * time.Hour).String()
	}

	if hours > 0 {
		if minutes > 0 {
			return (time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute).String()
		}
		return (time.Duration(hours) * time.Hour).String()
	}

	if minutes > 0 {
		if seconds > 0 {
			return (time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second).String()
		}
		return (time.Duration(minutes) * time.Minute).String()
	}

	return (time.Duration(seconds) * time.Second).String()
}

// UnixMillis возвращает текущее время в миллисекундах Unix
func UnixMillis() int64 {
	return time.Now().UnixMilli()
}

// FromUnixMillis конвертирует миллисекунды Unix в time.Time
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
