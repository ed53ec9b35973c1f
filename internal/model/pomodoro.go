package model

import "time"

type Mode string

const (
	ModePomodoro   Mode = "pomodoro"
	ModeShortBreak Mode = "short_break"
	ModeLongBreak  Mode = "long_break"
)

func (m Mode) Valid() bool {
	return m == ModePomodoro || m == ModeShortBreak || m == ModeLongBreak
}

const (
	DefaultPomodoroMinutes   = 25
	DefaultShortBreakMinutes = 5
	DefaultLongBreakMinutes  = 15

	// LongBreakInterval is the number of completed pomodoros between long breaks.
	LongBreakInterval = 4

	DefaultSessionTitle = "Pomodoro Session"
)

type TimerSettings struct {
	PomodoroMinutes    int  `json:"pomodoroMinutes" yaml:"pomodoro_minutes"`
	ShortBreakMinutes  int  `json:"shortBreakMinutes" yaml:"short_break_minutes"`
	LongBreakMinutes   int  `json:"longBreakMinutes" yaml:"long_break_minutes"`
	AutoStartBreaks    bool `json:"autoStartBreaks" yaml:"auto_start_breaks"`
	AutoStartPomodoros bool `json:"autoStartPomodoros" yaml:"auto_start_pomodoros"`
}

func DefaultTimerSettings() TimerSettings {
	return TimerSettings{
		PomodoroMinutes:    DefaultPomodoroMinutes,
		ShortBreakMinutes:  DefaultShortBreakMinutes,
		LongBreakMinutes:   DefaultLongBreakMinutes,
		AutoStartBreaks:    true,
		AutoStartPomodoros: true,
	}
}

// Valid reports whether every duration is positive.
func (s TimerSettings) Valid() bool {
	return len(s.InvalidFields()) == 0
}

// InvalidFields lists the JSON names of durations that are not positive.
func (s TimerSettings) InvalidFields() []string {
	var fields []string
	if s.PomodoroMinutes <= 0 {
		fields = append(fields, "pomodoroMinutes")
	}
	if s.ShortBreakMinutes <= 0 {
		fields = append(fields, "shortBreakMinutes")
	}
	if s.LongBreakMinutes <= 0 {
		fields = append(fields, "longBreakMinutes")
	}
	return fields
}

// DurationSeconds returns the configured countdown length for mode.
func (s TimerSettings) DurationSeconds(mode Mode) int {
	switch mode {
	case ModeShortBreak:
		return s.ShortBreakMinutes * 60
	case ModeLongBreak:
		return s.LongBreakMinutes * 60
	default:
		return s.PomodoroMinutes * 60
	}
}

type TimerSession struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Title           string    `json:"title"`
	DurationSeconds int       `json:"durationSeconds"`
	StartedAt       time.Time `json:"startedAt"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type SessionFilter string

const (
	FilterAll        SessionFilter = "all"
	FilterCompleted  SessionFilter = "completed"
	FilterIncomplete SessionFilter = "incomplete"
)

func ParseSessionFilter(raw string) (SessionFilter, bool) {
	switch SessionFilter(raw) {
	case "", FilterAll:
		return FilterAll, true
	case FilterCompleted:
		return FilterCompleted, true
	case FilterIncomplete:
		return FilterIncomplete, true
	}
	return "", false
}

type SessionStats struct {
	TotalSessions         int `json:"totalSessions"`
	CompletedSessions     int `json:"completedSessions"`
	CompletedFocusSeconds int `json:"completedFocusSeconds"`
}
