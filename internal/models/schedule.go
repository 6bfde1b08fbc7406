package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Weekday names accepted on the wire.
const (
	Monday    = "Monday"
	Tuesday   = "Tuesday"
	Wednesday = "Wednesday"
	Thursday  = "Thursday"
	Friday    = "Friday"
	Saturday  = "Saturday"
	Sunday    = "Sunday"
)

var weekdayOrder = map[string]int{
	Monday:    0,
	Tuesday:   1,
	Wednesday: 2,
	Thursday:  3,
	Friday:    4,
	Saturday:  5,
	Sunday:    6,
}

// Schedule is an immutable meeting pattern: a set of weekdays, a half-open
// minute-of-day interval and a room. Replacing a course's schedule means
// constructing a new value.
type Schedule struct {
	days  map[string]struct{}
	start int
	end   int
	room  string
}

// ScheduleRecord is the wire representation of a Schedule.
type ScheduleRecord struct {
	Days []string `json:"days"`
	Time string   `json:"time"`
	Room string   `json:"room"`
}

// NewSchedule validates and builds a Schedule from its wire fields.
// The time range uses the "HH:MM-HH:MM" 24-hour zero-padded format and is
// treated as half-open: a course ending at 11:30 does not collide with one
// starting at 11:30.
func NewSchedule(days []string, timeRange, room string) (Schedule, error) {
	if len(days) == 0 {
		return Schedule{}, fmt.Errorf("schedule requires at least one day")
	}
	daySet := make(map[string]struct{}, len(days))
	for _, day := range days {
		if _, ok := weekdayOrder[day]; !ok {
			return Schedule{}, fmt.Errorf("unknown weekday %q", day)
		}
		daySet[day] = struct{}{}
	}
	start, end, err := ParseTimeRange(timeRange)
	if err != nil {
		return Schedule{}, err
	}
	if strings.TrimSpace(room) == "" {
		return Schedule{}, fmt.Errorf("schedule requires a room")
	}
	return Schedule{days: daySet, start: start, end: end, room: room}, nil
}

// ScheduleFromRecord decodes a wire record, rejecting malformed data.
func ScheduleFromRecord(rec ScheduleRecord) (Schedule, error) {
	return NewSchedule(rec.Days, rec.Time, rec.Room)
}

// Record returns the wire representation.
func (s Schedule) Record() ScheduleRecord {
	return ScheduleRecord{Days: s.Days(), Time: s.TimeRange(), Room: s.room}
}

// Days lists the meeting days in week order.
func (s Schedule) Days() []string {
	days := make([]string, 0, len(s.days))
	for day := range s.days {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool {
		return weekdayOrder[days[i]] < weekdayOrder[days[j]]
	})
	return days
}

// Start returns the start minute of day.
func (s Schedule) Start() int { return s.start }

// End returns the end minute of day.
func (s Schedule) End() int { return s.end }

// Room returns the room identifier.
func (s Schedule) Room() string { return s.room }

// TimeRange formats the interval back into "HH:MM-HH:MM".
func (s Schedule) TimeRange() string {
	return fmt.Sprintf("%s-%s", formatMinutes(s.start), formatMinutes(s.end))
}

// Overlaps reports whether two schedules share a day and an overlapping time
// interval. The check is commutative and uses half-open semantics, so touching
// intervals do not overlap. Rooms are irrelevant: two meetings at the same
// time conflict for a student no matter where they take place.
func (s Schedule) Overlaps(other Schedule) bool {
	shared := false
	for day := range s.days {
		if _, ok := other.days[day]; ok {
			shared = true
			break
		}
	}
	if !shared {
		return false
	}
	return s.start < other.end && other.start < s.end
}

// ParseTimeRange parses "HH:MM-HH:MM" into start and end minutes of day.
// Malformed strings are a data error, never silently defaulted.
func ParseTimeRange(raw string) (int, int, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time range %q must be HH:MM-HH:MM", raw)
	}
	start, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("time range %q: %w", raw, err)
	}
	end, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("time range %q: %w", raw, err)
	}
	if start >= end {
		return 0, 0, fmt.Errorf("time range %q must start before it ends", raw)
	}
	return start, end, nil
}

func parseClock(raw string) (int, error) {
	if len(raw) != 5 || raw[2] != ':' {
		return 0, fmt.Errorf("clock %q must be zero-padded HH:MM", raw)
	}
	hours, err := strconv.Atoi(raw[:2])
	if err != nil {
		return 0, fmt.Errorf("clock %q has invalid hours", raw)
	}
	minutes, err := strconv.Atoi(raw[3:])
	if err != nil {
		return 0, fmt.Errorf("clock %q has invalid minutes", raw)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock %q out of range", raw)
	}
	return hours*60 + minutes, nil
}

func formatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
