package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditEventType defines the type of audit event
type AuditEventType string

const (
	AuditTaskStart     AuditEventType = "task_start"
	AuditTaskComplete  AuditEventType = "task_complete"
	AuditTaskError     AuditEventType = "task_error"
	AuditProviderProbe AuditEventType = "provider_probe"
	AuditContextImport AuditEventType = "context_import"
	AuditContextExport AuditEventType = "context_export"
	AuditContextClear  AuditEventType = "context_clear"
)

// AuditEvent is one line of audit.log. Unlike category logs it is always JSON.
type AuditEvent struct {
	EventType AuditEventType
	Provider  string
	Model     string
	Success   bool
	Duration  time.Duration
	ErrorKind string
	Error     string
	Tokens    int
	Target    string
	Message   string
}

// AuditLogger writes structured audit events
type AuditLogger struct {
	logger *zap.Logger
	sink   *lumberjack.Logger
}

var (
	auditLogger *AuditLogger
	auditMu     sync.Mutex
)

// InitAudit opens audit.log in the logs directory. No-op unless debug mode is on.
func InitAudit() error {
	auditMu.Lock()
	defer auditMu.Unlock()

	if !IsDebugMode() {
		return nil
	}

	optionsMu.RLock()
	dir := logsDir
	opts := options
	optionsMu.RUnlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	sink := newSink(filepath.Join(dir, "audit.log"), opts)
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.EpochMillisTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), zapcore.AddSync(sink), zapcore.InfoLevel)
	auditLogger = &AuditLogger{logger: zap.New(core), sink: sink}
	return nil
}

// CloseAudit flushes and closes the audit log
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger == nil {
		return
	}
	_ = auditLogger.logger.Sync()
	_ = auditLogger.sink.Close()
	auditLogger = nil
}

// Audit returns the global audit logger, or a no-op one when auditing is off
func Audit() *AuditLogger {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger == nil {
		return &AuditLogger{}
	}
	return auditLogger
}

// Log writes an audit event
func (a *AuditLogger) Log(e AuditEvent) {
	if a.logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("event", string(e.EventType)),
		zap.Bool("success", e.Success),
	}
	if e.Provider != "" {
		fields = append(fields, zap.String("provider", e.Provider))
	}
	if e.Model != "" {
		fields = append(fields, zap.String("model", e.Model))
	}
	if e.Duration > 0 {
		fields = append(fields, zap.Int64("dur_ms", e.Duration.Milliseconds()))
	}
	if e.ErrorKind != "" {
		fields = append(fields, zap.String("error_kind", e.ErrorKind))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	if e.Tokens > 0 {
		fields = append(fields, zap.Int("tokens", e.Tokens))
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}
	msg := e.Message
	if msg == "" {
		msg = string(e.EventType)
	}
	a.logger.Info(msg, fields...)
}

// TaskStart logs the beginning of a task against a resolved provider
func (a *AuditLogger) TaskStart(provider, model string, taskLen int) {
	a.Log(AuditEvent{
		EventType: AuditTaskStart,
		Provider:  provider,
		Model:     model,
		Success:   true,
		Message:   fmt.Sprintf("task started (%d chars)", taskLen),
	})
}

// TaskComplete logs a successful task
func (a *AuditLogger) TaskComplete(provider, model string, tokens int, d time.Duration) {
	a.Log(AuditEvent{
		EventType: AuditTaskComplete,
		Provider:  provider,
		Model:     model,
		Success:   true,
		Tokens:    tokens,
		Duration:  d,
	})
}

// TaskError logs a failed task with its classified kind
func (a *AuditLogger) TaskError(provider, model, kind, errMsg string, d time.Duration) {
	a.Log(AuditEvent{
		EventType: AuditTaskError,
		Provider:  provider,
		Model:     model,
		ErrorKind: kind,
		Error:     errMsg,
		Duration:  d,
	})
}

// ProviderProbe logs one health probe outcome
func (a *AuditLogger) ProviderProbe(provider string, success bool, errMsg string, d time.Duration) {
	a.Log(AuditEvent{
		EventType: AuditProviderProbe,
		Provider:  provider,
		Success:   success,
		Error:     errMsg,
		Duration:  d,
	})
}

// ContextEvent logs an import, export or clear of the context store
func (a *AuditLogger) ContextEvent(event AuditEventType, target string, success bool) {
	a.Log(AuditEvent{
		EventType: event,
		Target:    target,
		Success:   success,
	})
}
