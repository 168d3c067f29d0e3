// Package agenda derives the default program category for meeting dates and
// fills calendar gaps ahead of time. Certain weekends replace the regular
// program: assembly weekends in the conference months and one administrative
// weekend per month.
package agenda

import (
	"time"

	"github.com/podiumhq/podium-core/internal/models"
)

// DateFormat is the wire format for meeting dates.
const DateFormat = "2006-01-02"

// Conference months host the circuit assembly on their first meeting weekend.
func isConferenceMonth(m time.Month) bool {
	return m == time.April || m == time.October
}

// Categorize maps a date to its default program category, determined by the
// month and which occurrence of its weekday the date is within that month.
// Conference months put the assembly on the first occurrence and the
// administrative weekend on the second; every other month holds the
// administrative weekend on the first. All remaining dates run the regular
// program.
func Categorize(date time.Time) models.ExceptionCategory {
	nth := (date.Day()-1)/7 + 1

	if isConferenceMonth(date.Month()) {
		switch nth {
		case 1:
			return models.CategoryAssembly
		case 2:
			return models.CategoryAdministrative
		}
		return models.CategoryRegular
	}

	if nth == 1 {
		return models.CategoryAdministrative
	}
	return models.CategoryRegular
}

// CategorizeDate is Categorize over the wire date format.
func CategorizeDate(date string) (models.ExceptionCategory, error) {
	t, err := time.Parse(DateFormat, date)
	if err != nil {
		return "", err
	}
	return Categorize(t), nil
}

// UpcomingMeetingDates lists the next count meeting dates on the given
// weekday, starting from (and including) the first such day at or after from.
func UpcomingMeetingDates(from time.Time, weekday time.Weekday, count int) []string {
	days := (int(weekday) - int(from.Weekday()) + 7) % 7
	next := from.AddDate(0, 0, days)

	dates := make([]string, 0, count)
	for i := 0; i < count; i++ {
		dates = append(dates, next.AddDate(0, 0, 7*i).Format(DateFormat))
	}
	return dates
}
