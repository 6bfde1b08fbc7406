package models

import (
	"fmt"
	"strings"
	"time"
)

// Course is a catalog offering. The CourseRegistry owns every instance;
// Enroll and Drop are the only paths that touch the enrolled counter and they
// rely on the registry for synchronization.
type Course struct {
	ID            string
	Name          string
	Description   string
	Credits       int
	Instructor    string
	Capacity      int
	Enrolled      int
	Prerequisites []string
	Schedule      *Schedule
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CourseRecord is the wire representation of a Course. Timestamps travel as
// ISO-8601 strings.
type CourseRecord struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Credits       int             `json:"credits"`
	Instructor    string          `json:"instructor"`
	Capacity      int             `json:"capacity"`
	Enrolled      int             `json:"enrolled"`
	Prerequisites []string        `json:"prerequisites"`
	Schedule      *ScheduleRecord `json:"schedule"`
	Active        bool            `json:"active"`
	CreatedAt     string          `json:"created_at"`
	UpdatedAt     string          `json:"updated_at"`
}

// NewCourse builds a catalog entry with no enrollments. Non-positive credits
// or capacity are data-integrity errors and are rejected here rather than
// coerced.
func NewCourse(id, name, description string, credits int, instructor string, capacity int, prerequisites []string) (*Course, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("course requires an id")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("course %s requires a name", id)
	}
	if credits <= 0 {
		return nil, fmt.Errorf("course %s requires positive credits", id)
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("course %s requires positive capacity", id)
	}
	now := time.Now().UTC()
	return &Course{
		ID:            id,
		Name:          name,
		Description:   description,
		Credits:       credits,
		Instructor:    instructor,
		Capacity:      capacity,
		Prerequisites: append([]string(nil), prerequisites...),
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanEnroll reports whether the course accepts another enrollment.
func (c *Course) CanEnroll() bool {
	return c.Active && c.Enrolled < c.Capacity
}

// Enroll takes one seat. It returns false without mutating anything when the
// course is full or inactive. Callers must hold the registry lock.
func (c *Course) Enroll() bool {
	if !c.CanEnroll() {
		return false
	}
	c.Enrolled++
	c.touch()
	return true
}

// Drop releases one seat. The counter never goes below zero.
func (c *Course) Drop() bool {
	if c.Enrolled <= 0 {
		return false
	}
	c.Enrolled--
	c.touch()
	return true
}

// Seat takes one seat regardless of the active flag, bounded by capacity.
// Used when rebuilding counters from the registration ledger: a soft-removed
// course legitimately retains its enrolled students. Timestamps are left
// alone; reseating is bookkeeping, not a mutation of the course.
func (c *Course) Seat() bool {
	if c.Enrolled >= c.Capacity {
		return false
	}
	c.Enrolled++
	return true
}

// AvailableSeats returns the remaining capacity, never negative.
func (c *Course) AvailableSeats() int {
	if c.Enrolled >= c.Capacity {
		return 0
	}
	return c.Capacity - c.Enrolled
}

// ConflictsWith reports whether two courses collide on the weekly grid.
// A course without a schedule conflicts with nothing.
func (c *Course) ConflictsWith(other *Course) bool {
	if c.Schedule == nil || other == nil || other.Schedule == nil {
		return false
	}
	return c.Schedule.Overlaps(*other.Schedule)
}

// MeetsPrerequisites reports whether every prerequisite id appears in the
// completed set. Prerequisite ids are not validated against the catalog.
func (c *Course) MeetsPrerequisites(completed map[string]struct{}) bool {
	for _, prereq := range c.Prerequisites {
		if _, ok := completed[prereq]; !ok {
			return false
		}
	}
	return true
}

// SetSchedule replaces the meeting pattern with a new immutable value.
func (c *Course) SetSchedule(s Schedule) {
	c.Schedule = &s
	c.touch()
}

// Deactivate soft-deletes the course. The id and history are retained and
// nothing in this package ever flips a course back to active.
func (c *Course) Deactivate() {
	c.Active = false
	c.touch()
}

// Clone returns a deep copy safe to hand outside the registry lock.
func (c *Course) Clone() *Course {
	clone := *c
	clone.Prerequisites = append([]string(nil), c.Prerequisites...)
	if c.Schedule != nil {
		sched := *c.Schedule
		clone.Schedule = &sched
	}
	return &clone
}

// Record converts the course into its wire representation.
func (c *Course) Record() CourseRecord {
	rec := CourseRecord{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Credits:       c.Credits,
		Instructor:    c.Instructor,
		Capacity:      c.Capacity,
		Enrolled:      c.Enrolled,
		Prerequisites: append([]string{}, c.Prerequisites...),
		Active:        c.Active,
		CreatedAt:     c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     c.UpdatedAt.Format(time.RFC3339),
	}
	if c.Schedule != nil {
		sched := c.Schedule.Record()
		rec.Schedule = &sched
	}
	return rec
}

// CourseFromRecord decodes a wire record into a Course, failing loudly on
// missing or corrupt fields instead of defaulting.
func CourseFromRecord(rec CourseRecord) (*Course, error) {
	course, err := NewCourse(rec.ID, rec.Name, rec.Description, rec.Credits, rec.Instructor, rec.Capacity, rec.Prerequisites)
	if err != nil {
		return nil, err
	}
	if rec.Enrolled < 0 || rec.Enrolled > rec.Capacity {
		return nil, fmt.Errorf("course %s enrolled count %d outside 0..%d", rec.ID, rec.Enrolled, rec.Capacity)
	}
	course.Enrolled = rec.Enrolled
	course.Active = rec.Active
	if rec.Schedule != nil {
		sched, err := ScheduleFromRecord(*rec.Schedule)
		if err != nil {
			return nil, fmt.Errorf("course %s: %w", rec.ID, err)
		}
		course.Schedule = &sched
	}
	createdAt, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("course %s has invalid created_at: %w", rec.ID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("course %s has invalid updated_at: %w", rec.ID, err)
	}
	if updatedAt.Before(createdAt) {
		return nil, fmt.Errorf("course %s updated before it was created", rec.ID)
	}
	course.CreatedAt = createdAt
	course.UpdatedAt = updatedAt
	return course, nil
}

// CourseConflict names a pair of courses whose schedules collide.
type CourseConflict struct {
	CourseA string `json:"course_a"`
	CourseB string `json:"course_b"`
}

func (c *Course) touch() {
	now := time.Now().UTC()
	if now.After(c.UpdatedAt) {
		c.UpdatedAt = now
	}
}
