package inspection

import (
	"fmt"
	"sort"

	"github.com/tbourn/annual-inspection-bot/internal/domain"
)

// LeadDays is the exact day-distance at which a reminder fires.
const LeadDays = 30

// Scan returns every record whose expiry is exactly LeadDays after today.
//
// Selection is an exact match, not a window: a record at 29 or 31 days is
// never selected, so a record fires once in its lifetime when the scan runs
// once per calendar day. The result is sorted by chat then plate; callers
// must not rely on any ordering between deliveries. state is not modified.
func Scan(state domain.GlobalState, today domain.CalendarDate) []domain.DueRecord {
	var due []domain.DueRecord
	for chatID, cs := range state {
		for plate, expiry := range cs {
			if days := expiry.DaysSince(today); days == LeadDays {
				due = append(due, domain.DueRecord{
					ChatID:   chatID,
					Plate:    plate,
					Expiry:   expiry,
					DaysLeft: days,
				})
			}
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].ChatID != due[j].ChatID {
			return due[i].ChatID < due[j].ChatID
		}
		return due[i].Plate < due[j].Plate
	})
	return due
}

// ReminderText renders the notification for one due record.
func ReminderText(r domain.DueRecord) string {
	return fmt.Sprintf("Через %d дней истекает annual inspection для %s (%s).", r.DaysLeft, r.Plate, r.Expiry)
}
