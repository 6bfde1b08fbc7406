package models

// TimetableEntry is one meeting on a student's weekly timetable.
type TimetableEntry struct {
	CourseID   string   `json:"course_id"`
	CourseName string   `json:"course_name"`
	Instructor string   `json:"instructor"`
	Days       []string `json:"days"`
	Time       string   `json:"time"`
	Room       string   `json:"room"`
}
