package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSchedule(t *testing.T, days []string, timeRange string) Schedule {
	t.Helper()
	s, err := NewSchedule(days, timeRange, "A-101")
	require.NoError(t, err)
	return s
}

func TestNewScheduleValidation(t *testing.T) {
	_, err := NewSchedule(nil, "10:00-11:30", "A-101")
	assert.Error(t, err)

	_, err = NewSchedule([]string{"Funday"}, "10:00-11:30", "A-101")
	assert.Error(t, err)

	_, err = NewSchedule([]string{Monday}, "10:00-11:30", "  ")
	assert.Error(t, err)
}

func TestScheduleDaysWeekOrdered(t *testing.T) {
	s := mustSchedule(t, []string{Friday, Monday, Wednesday}, "10:00-11:30")
	assert.Equal(t, []string{Monday, Wednesday, Friday}, s.Days())
}

func TestScheduleOverlaps(t *testing.T) {
	base := mustSchedule(t, []string{Monday, Wednesday}, "10:00-11:30")

	overlapping := mustSchedule(t, []string{Monday}, "11:00-12:00")
	assert.True(t, base.Overlaps(overlapping))
	assert.True(t, overlapping.Overlaps(base), "overlap must be commutative")

	touching := mustSchedule(t, []string{Monday}, "11:30-13:00")
	assert.False(t, base.Overlaps(touching), "touching intervals do not overlap")
	assert.False(t, touching.Overlaps(base))

	otherDay := mustSchedule(t, []string{Tuesday}, "10:00-11:30")
	assert.False(t, base.Overlaps(otherDay))

	contained := mustSchedule(t, []string{Wednesday}, "10:30-11:00")
	assert.True(t, base.Overlaps(contained))
}

func TestParseTimeRange(t *testing.T) {
	start, end, err := ParseTimeRange("09:00-10:30")
	require.NoError(t, err)
	assert.Equal(t, 9*60, start)
	assert.Equal(t, 10*60+30, end)

	cases := []string{
		"",
		"09:00",
		"9:00-10:30",
		"09:00-10:30-11:00",
		"09:60-10:30",
		"24:00-25:00",
		"10:30-10:30",
		"11:00-10:00",
		"ab:cd-ef:gh",
	}
	for _, raw := range cases {
		_, _, err := ParseTimeRange(raw)
		assert.Error(t, err, "expected %q to be rejected", raw)
	}
}

func TestScheduleRecordRoundTrip(t *testing.T) {
	s := mustSchedule(t, []string{Tuesday, Thursday}, "14:00-15:30")

	rec := s.Record()
	assert.Equal(t, []string{Tuesday, Thursday}, rec.Days)
	assert.Equal(t, "14:00-15:30", rec.Time)
	assert.Equal(t, "A-101", rec.Room)

	decoded, err := ScheduleFromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, s.Start(), decoded.Start())
	assert.Equal(t, s.End(), decoded.End())
	assert.Equal(t, s.Room(), decoded.Room())
}
