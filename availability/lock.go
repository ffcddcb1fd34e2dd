// Package availability decides whether a match slot may be played at a
// given instant. The window opens at a fixed local hour on the scheduled
// date and stays open until the same local hour on the following calendar
// day. All comparisons happen in the match's configured timezone, never in
// the machine-local one.
package availability

import (
	"fmt"
	"time"
)

// OpenHour — час локального времени, в который открывается окно матча.
const OpenHour = 8

// Verdict is the lock decision with a human-readable reason when locked.
type Verdict struct {
	Locked bool   `json:"locked"`
	Reason string `json:"reason,omitempty"`
}

var unlocked = Verdict{}

// Check reports whether the slot is locked at the given instant.
// A nil scheduled date means ad-hoc play: always unlocked.
// The instant equal to the open hour is unlocked; one second before is not.
func Check(scheduledDate *time.Time, timezone string, now time.Time) (Verdict, error) {
	if scheduledDate == nil {
		return unlocked, nil
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Verdict{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}

	// scheduledDate несёт календарную дату, а не момент времени: колонка
	// date сканируется как полночь UTC, и конвертация через In(loc) в
	// поясе западнее UTC сдвинула бы дату на день назад. Берём поля
	// год/месяц/день как есть.
	year, month, day := scheduledDate.Date()
	opensAt := time.Date(year, month, day, OpenHour, 0, 0, 0, loc)
	// Следующий календарный день, а не +24h: переходы на летнее время
	// не должны сдвигать час закрытия.
	closesAt := time.Date(year, month, day+1, OpenHour, 0, 0, 0, loc)

	switch {
	case now.Before(opensAt):
		return Verdict{
			Locked: true,
			Reason: fmt.Sprintf("match window opens %s at %02d:00 (%s)",
				opensAt.Format("2006-01-02"), OpenHour, timezone),
		}, nil
	case !now.Before(closesAt):
		return Verdict{
			Locked: true,
			Reason: fmt.Sprintf("match window closed %s at %02d:00 (%s)",
				closesAt.Format("2006-01-02"), OpenHour, timezone),
		}, nil
	default:
		return unlocked, nil
	}
}
