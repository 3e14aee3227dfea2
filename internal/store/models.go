// Package store persists contest entities and is the single source of truth
// for team, question, submission and settings state.
package store

import "time"

// QuestionKind classifies how a question is answered and graded.
type QuestionKind string

const (
	KindChoice QuestionKind = "choice"
	KindDebug  QuestionKind = "debug"
	KindFill   QuestionKind = "fill"
	KindCoding QuestionKind = "coding"
)

// IsCode reports whether answers are C source graded in the sandbox.
func (k QuestionKind) IsCode() bool {
	return k == KindDebug || k == KindFill || k == KindCoding
}

// Valid reports whether the kind is one of the known values.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindChoice, KindDebug, KindFill, KindCoding:
		return true
	}
	return false
}

// TestCase is one (input, expected output) pair used to grade code answers.
type TestCase struct {
	Input    string `json:"input"`
	Expected string `json:"expectedOutput"`
}

// Question is immutable once the contest starts; replaced only during setup.
type Question struct {
	QuestionID    string       `json:"questionID"`
	Kind          QuestionKind `json:"kind"`
	Section       int          `json:"section"`
	Position      int          `json:"position"`
	Prompt        string       `json:"prompt"`
	Options       []string     `json:"options,omitempty"`
	CorrectOption string       `json:"correctOption,omitempty"`
	StarterCode   string       `json:"starterCode,omitempty"`
	TestCases     []TestCase   `json:"testCases,omitempty"`
	Marks         int          `json:"marks"`
	Hint          string       `json:"hint,omitempty"`
}

// Team is created on first login by email and never deleted during a contest.
type Team struct {
	TeamID             string `json:"teamID"`
	TeamName           string `json:"teamName"`
	LeaderName         string `json:"leaderName"`
	Email              string `json:"email"`
	Score              int    `json:"score"`
	Disqualified       bool   `json:"disqualified"`
	DisqualifiedReason string `json:"disqualifiedReason,omitempty"`
	Violations         int    `json:"violations"`
	StartTime          string `json:"startTime,omitempty"`
	EndTime            string `json:"endTime,omitempty"`
	Submitted          bool   `json:"submitted"`
	DeviceFingerprint  string `json:"-"`
	SessionToken       string `json:"-"`
}

// TestCaseResult records one graded test case for audit and display.
type TestCaseResult struct {
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"got"`
	Status   string `json:"status,omitempty"`
}

// Submission is the single row per (team, question) pair.
type Submission struct {
	TeamID         string           `json:"teamID"`
	QuestionID     string           `json:"questionID"`
	Kind           QuestionKind     `json:"kind"`
	Code           string           `json:"code,omitempty"`
	SelectedOption string           `json:"selectedOption,omitempty"`
	Output         string           `json:"output,omitempty"`
	Marks          int              `json:"marks"`
	MaxMarks       int              `json:"maxMarks"`
	TestResults    []TestCaseResult `json:"testResults,omitempty"`
	Evaluated      bool             `json:"evaluated"`
}

// Announcement is one entry in the bounded contest announcement log.
type Announcement struct {
	Message   string `json:"message"`
	CreatedAt string `json:"createdAt"`
}

// MaxAnnouncements caps the announcement log; oldest entries drop first.
const MaxAnnouncements = 50

// Settings is the single global contest record.
type Settings struct {
	IsActive        bool           `json:"isActive"`
	ScheduledStart  string         `json:"scheduledStart,omitempty"`
	DurationMinutes int            `json:"contestDuration"`
	Announcements   []Announcement `json:"announcements"`
	StartedAt       string         `json:"startedAt,omitempty"`
	StoppedAt       string         `json:"stoppedAt,omitempty"`
}

// NowISO returns the current UTC time as a sortable ISO-8601 string,
// the persisted timestamp format for every entity.
func NowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
