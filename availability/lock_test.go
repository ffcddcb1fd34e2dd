package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tz = "America/Chicago"

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestCheckNilDateIsAlwaysUnlocked(t *testing.T) {
	verdict, err := Check(nil, tz, time.Now())

	require.NoError(t, err)
	assert.False(t, verdict.Locked)
	assert.Empty(t, verdict.Reason)
}

func TestCheckInvalidTimezone(t *testing.T) {
	date := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

	_, err := Check(&date, "Not/AZone", time.Now())

	assert.Error(t, err)
}

func TestCheckWindowBoundaries(t *testing.T) {
	loc := mustLoc(t, tz)
	date := time.Date(2026, 6, 10, 0, 0, 0, 0, loc)

	tests := []struct {
		name   string
		now    time.Time
		locked bool
	}{
		{"one second before open", time.Date(2026, 6, 10, 7, 59, 59, 0, loc), true},
		{"exactly at open", time.Date(2026, 6, 10, 8, 0, 0, 0, loc), false},
		{"mid window", time.Date(2026, 6, 10, 20, 30, 0, 0, loc), false},
		{"one second before close", time.Date(2026, 6, 11, 7, 59, 59, 0, loc), false},
		{"exactly at close", time.Date(2026, 6, 11, 8, 0, 0, 0, loc), true},
		{"long after close", time.Date(2026, 6, 15, 12, 0, 0, 0, loc), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := Check(&date, tz, tt.now)

			require.NoError(t, err)
			assert.Equal(t, tt.locked, verdict.Locked)
			if tt.locked {
				assert.NotEmpty(t, verdict.Reason)
			}
		})
	}
}

// Проверка в часовом поясе матча, а не машины: для того же instant в UTC
// вердикт не меняется.
func TestCheckUsesMatchTimezone(t *testing.T) {
	loc := mustLoc(t, tz)
	date := time.Date(2026, 6, 10, 0, 0, 0, 0, loc)
	// 13:00 UTC = 08:00 в Чикаго летом.
	openInstant := time.Date(2026, 6, 10, 13, 0, 0, 0, time.UTC)

	verdict, err := Check(&date, tz, openInstant)
	require.NoError(t, err)
	assert.False(t, verdict.Locked)

	verdict, err = Check(&date, tz, openInstant.Add(-time.Second))
	require.NoError(t, err)
	assert.True(t, verdict.Locked)
}

// Окно закрывается в 08:00 следующего календарного дня даже через переход
// на летнее время, то есть не обязательно ровно через 24 часа.
func TestCheckAcrossDSTTransition(t *testing.T) {
	loc := mustLoc(t, tz)
	// Матч назначен на 7 марта 2026: окно накрывает ночной переход на
	// летнее время и длится 23 фактических часа.
	date := time.Date(2026, 3, 7, 0, 0, 0, 0, loc)

	verdict, err := Check(&date, tz, time.Date(2026, 3, 8, 7, 59, 0, 0, loc))
	require.NoError(t, err)
	assert.False(t, verdict.Locked)

	verdict, err = Check(&date, tz, time.Date(2026, 3, 8, 8, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.True(t, verdict.Locked)

	opensAt := time.Date(2026, 3, 7, 8, 0, 0, 0, loc)
	closesAt := time.Date(2026, 3, 8, 8, 0, 0, 0, loc)
	assert.Equal(t, 23*time.Hour, closesAt.Sub(opensAt))
}

// Колонка date приходит из базы полночью UTC, а клиенты шлют
// "2026-06-10T00:00:00Z". Для пояса западнее UTC окно обязано открыться
// 10 июня по местному времени, а не днём раньше.
func TestCheckUTCEncodedDate(t *testing.T) {
	loc := mustLoc(t, tz)
	date := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)

	// Утро накануне назначенной даты — окно ещё закрыто.
	verdict, err := Check(&date, tz, time.Date(2026, 6, 9, 9, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.True(t, verdict.Locked)
	assert.Contains(t, verdict.Reason, "2026-06-10")

	// Открытие ровно в 08:00 местного времени назначенного дня.
	verdict, err = Check(&date, tz, time.Date(2026, 6, 10, 8, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.False(t, verdict.Locked)

	// И закрытие в 08:00 следующего местного дня.
	verdict, err = Check(&date, tz, time.Date(2026, 6, 11, 8, 0, 0, 0, loc))
	require.NoError(t, err)
	assert.True(t, verdict.Locked)
}

func TestCheckReasonNamesTheBoundary(t *testing.T) {
	loc := mustLoc(t, tz)
	date := time.Date(2026, 6, 10, 0, 0, 0, 0, loc)

	verdict, err := Check(&date, tz, time.Date(2026, 6, 9, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	require.True(t, verdict.Locked)
	assert.Contains(t, verdict.Reason, "2026-06-10")
	assert.Contains(t, verdict.Reason, "08:00")

	verdict, err = Check(&date, tz, time.Date(2026, 6, 12, 12, 0, 0, 0, loc))
	require.NoError(t, err)
	require.True(t, verdict.Locked)
	assert.Contains(t, verdict.Reason, "2026-06-11")
}
