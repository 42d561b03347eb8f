package logging

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetForTest(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		CloseAudit()
		CloseAll()
		optionsMu.Lock()
		options = Options{}
		logsDir = ""
		optionsMu.Unlock()
	})
}

func TestDisabledModeWritesNothing(t *testing.T) {
	resetForTest(t)
	dir := filepath.Join(t.TempDir(), "logs")

	require.NoError(t, Initialize(dir, Options{DebugMode: false}))
	ProviderError("should not be written")

	assert.False(t, IsDebugMode())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "logs dir must not be created outside debug mode")
}

func TestCategoryFilesAreWritten(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, Options{
		DebugMode: true,
		Level:     "debug",
		Categories: map[string]bool{
			"registry": false,
		},
	}))

	ProviderDebug("calling %s", "openai")
	Context("saved %d entries", 3)
	Registry("this category is disabled")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, "provider.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "calling openai")

	data, err = os.ReadFile(filepath.Join(dir, "context.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "saved 3 entries")

	_, err = os.Stat(filepath.Join(dir, "registry.log"))
	assert.True(t, os.IsNotExist(err))
	assert.False(t, IsCategoryEnabled(CategoryRegistry))
}

func TestLevelFilter(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, Options{DebugMode: true, Level: "warn"}))
	GatewayDebug("hidden debug line")
	GatewayWarn("visible warning")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, "gateway.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden debug line")
	assert.Contains(t, string(data), "visible warning")
}

func TestJSONFormat(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, Options{DebugMode: true, JSONFormat: true}))
	Get(CategoryConfig).With("provider", "groq").Info("provider saved")
	CloseAll()

	f, err := os.Open(filepath.Join(dir, "config.log"))
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, "provider saved", entry["msg"])
	assert.Equal(t, "groq", entry["provider"])
	assert.Equal(t, "config", entry["logger"])
}

func TestAuditLog(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()

	require.NoError(t, Initialize(dir, Options{DebugMode: true}))
	require.NoError(t, InitAudit())

	Audit().TaskComplete("ollama", "llama2", 42, 1500*time.Millisecond)
	Audit().TaskError("openai", "gpt-4", "rate_limited", "slow down", time.Second)
	CloseAudit()

	f, err := os.Open(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	defer f.Close()

	var events []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		events = append(events, e)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "task_complete", events[0]["event"])
	assert.Equal(t, float64(42), events[0]["tokens"])
	assert.Equal(t, float64(1500), events[0]["dur_ms"])
	assert.Equal(t, "rate_limited", events[1]["error_kind"])
	assert.Equal(t, false, events[1]["success"])
}

func TestAuditNoopWhenDisabled(t *testing.T) {
	resetForTest(t)
	require.NoError(t, Initialize(t.TempDir(), Options{}))
	require.NoError(t, InitAudit())
	// Must not panic.
	Audit().ProviderProbe("gemini", false, "boom", time.Millisecond)
}

func TestTimer(t *testing.T) {
	resetForTest(t)
	timer := StartTimer(CategoryGateway, "noop")
	assert.GreaterOrEqual(t, timer.Stop(), time.Duration(0))
	assert.GreaterOrEqual(t, timer.StopWithThreshold(time.Hour), time.Duration(0))
}

func TestTimerThresholdWarns(t *testing.T) {
	resetForTest(t)
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, Options{DebugMode: true}))

	timer := StartTimer(CategoryGateway, "TestAll")
	timer.start = time.Now().Add(-time.Second)
	timer.StopWithThreshold(time.Millisecond)
	CloseAll()

	data, err := os.ReadFile(filepath.Join(dir, "gateway.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "TestAll slow")
}
