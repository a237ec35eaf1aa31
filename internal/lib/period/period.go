// Package period содержит календарную арифметику пробных и оплаченных периодов.
// Все даты нормализуются к полуночи UTC, поэтому сравнение идёт по дням.
package period

import (
	"time"

	"github.com/magabrotheeeer/school-admin/internal/models"
)

// NowFunc источник текущего времени, подменяется в тестах.
var NowFunc = time.Now

// Date отбрасывает время суток, сохраняя календарную дату t.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today возвращает сегодняшнюю дату.
func Today() time.Time {
	return Date(NowFunc())
}

// AddDays сдвигает дату на n календарных дней.
func AddDays(d time.Time, n int) time.Time {
	return Date(d).AddDate(0, 0, n)
}

// Next вычисляет границы нового оплаченного периода.
//
// last последний активный период пользователя (по дате окончания) или nil.
// Если он ещё не закончился, новый период начинается на следующий день после
// его окончания, иначе сегодня. День начала считается первым днём цикла.
func Next(last *models.BillingPeriod, today time.Time, cycleDays int) (start, end time.Time) {
	today = Date(today)
	start = today
	if last != nil && last.Status == models.PeriodStatusActive {
		lastEnd := Date(last.PeriodEnd)
		if !lastEnd.Before(today) {
			start = AddDays(lastEnd, 1)
		}
	}
	end = AddDays(start, cycleDays-1)
	return start, end
}

// Covers сообщает, даёт ли период доступ в день today.
func Covers(p *models.BillingPeriod, today time.Time) bool {
	if p == nil || p.Status != models.PeriodStatusActive {
		return false
	}
	return !Date(p.PeriodEnd).Before(Date(today))
}

// TrialActive сообщает, действует ли пробный период пользователя в день today.
// Начало пробного периода не проверяется, важна только дата окончания.
func TrialActive(u *models.User, today time.Time) bool {
	if u == nil || u.TrialEndsAt == nil {
		return false
	}
	return !Date(today).After(Date(*u.TrialEndsAt))
}
