package usage

import "time"

// Stats is a point-in-time copy of the process counters.
type Stats struct {
	StartedAt     time.Time              `json:"started_at"`
	TasksExecuted int64                  `json:"tasks_executed"`
	CommandsRun   int64                  `json:"commands_run"`
	Total         TokenCounts            `json:"total"`
	ByProvider    map[string]TokenCounts `json:"by_provider"`
	ByModel       map[string]TokenCounts `json:"by_model"`
	ByCommand     map[string]int64       `json:"by_command"`
}

// TokenCounts holds input/output sums.
type TokenCounts struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"total"`
}

// Add accumulates one task's usage. total is taken as reported when
// the backend supplies it, since some count tokens outside input and output.
func (tc *TokenCounts) Add(input, output, total int) {
	if total == 0 {
		total = input + output
	}
	tc.Input += int64(input)
	tc.Output += int64(output)
	tc.Total += int64(total)
}
