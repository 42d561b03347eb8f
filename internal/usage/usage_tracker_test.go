package usage

import (
	"sync"
	"testing"
	"time"

	"mangaba/internal/types"
)

func TestTracker_TrackAggregates(t *testing.T) {
	tracker := NewTracker()

	tracker.Track(types.ProviderGroq, "llama3-8b-8192", types.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	tracker.Track(types.ProviderGroq, "llama3-8b-8192", types.Usage{PromptTokens: 2, CompletionTokens: 3})
	tracker.Track(types.ProviderOllama, "llama2", types.Usage{})

	stats := tracker.Stats()
	if stats.TasksExecuted != 3 {
		t.Fatalf("TasksExecuted=%d, want 3", stats.TasksExecuted)
	}
	if stats.Total.Input != 12 || stats.Total.Output != 8 || stats.Total.Total != 20 {
		t.Fatalf("Total=%+v, want input=12 output=8 total=20", stats.Total)
	}
	if got := stats.ByProvider["groq"]; got.Total != 20 {
		t.Fatalf("ByProvider[groq]=%+v, want total=20", got)
	}
	if got := stats.ByModel["llama2"]; got.Total != 0 {
		t.Fatalf("ByModel[llama2]=%+v, want zero", got)
	}
	if got := stats.Providers(); len(got) != 2 || got[0] != "groq" || got[1] != "ollama" {
		t.Fatalf("Providers()=%v, want [groq ollama]", got)
	}
}

func TestTracker_ReportedTotalWins(t *testing.T) {
	var tc TokenCounts
	tc.Add(1, 1, 5)
	if tc.Total != 5 {
		t.Fatalf("Total=%d, want 5", tc.Total)
	}
}

func TestTracker_RecordCommand(t *testing.T) {
	tracker := NewTracker()
	tracker.RecordCommand("task")
	tracker.RecordCommand("task")
	tracker.RecordCommand("")

	stats := tracker.Stats()
	if stats.CommandsRun != 3 {
		t.Fatalf("CommandsRun=%d, want 3", stats.CommandsRun)
	}
	if stats.ByCommand["task"] != 2 {
		t.Fatalf("ByCommand[task]=%d, want 2", stats.ByCommand["task"])
	}
}

func TestTracker_StatsIsACopy(t *testing.T) {
	tracker := NewTracker()
	tracker.Track(types.ProviderOpenAI, "gpt-4", types.Usage{TotalTokens: 1})

	stats := tracker.Stats()
	stats.ByProvider["openai"] = TokenCounts{Total: 999}
	stats.ByCommand["x"] = 1

	again := tracker.Stats()
	if again.ByProvider["openai"].Total != 1 {
		t.Fatalf("mutating a snapshot leaked into the tracker")
	}
	if _, ok := again.ByCommand["x"]; ok {
		t.Fatalf("mutating a snapshot leaked into the tracker")
	}
}

func TestTracker_Uptime(t *testing.T) {
	tracker := NewTracker()
	start := tracker.stats.StartedAt
	tracker.now = func() time.Time { return start.Add(time.Minute) }

	if got := tracker.Uptime(); got != time.Minute {
		t.Fatalf("Uptime=%v, want 1m", got)
	}
}

func TestTracker_ConcurrentTrack(t *testing.T) {
	tracker := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Track(types.ProviderCohere, "command", types.Usage{PromptTokens: 1, CompletionTokens: 1})
		}()
	}
	wg.Wait()

	if got := tracker.Stats().Total.Total; got != 100 {
		t.Fatalf("Total=%d, want 100", got)
	}
}
