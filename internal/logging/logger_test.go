package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func resetState() {
	mutex.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	isInitialized = false
	globalConfig = Config{}
	mutex.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	// Global info level, health at debug, api at warn
	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"health": "debug",
			"api":    "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"health", true, true, true},
		{"api", false, false, true},
		{"launcher", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			logger := GetLogger(tt.module)
			handler := logger.Handler()

			gotDebug := handler.Enabled(context.Background(), slog.LevelDebug)
			gotInfo := handler.Enabled(context.Background(), slog.LevelInfo)
			gotWarn := handler.Enabled(context.Background(), slog.LevelWarn)

			if gotDebug != tt.wantDebug {
				t.Errorf("module %q: Debug enabled = %v, want %v", tt.module, gotDebug, tt.wantDebug)
			}
			if gotInfo != tt.wantInfo {
				t.Errorf("module %q: Info enabled = %v, want %v", tt.module, gotInfo, tt.wantInfo)
			}
			if gotWarn != tt.wantWarn {
				t.Errorf("module %q: Warn enabled = %v, want %v", tt.module, gotWarn, tt.wantWarn)
			}
		})
	}
}

func TestReloadChangesLevels(t *testing.T) {
	resetState()

	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("nutclient")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("debug should be disabled at info level")
	}

	Reload(Config{
		Level:   "info",
		Modules: map[string]string{"nutclient": "debug"},
	})

	// Same cached logger, level updated through its LevelVar
	if !GetLogger("nutclient").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled after Reload set the module override")
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	// Get logger BEFORE Initialize - should default to info level
	loggerBefore := GetLogger("health")
	handlerBefore := loggerBefore.Handler()

	if handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Logger created before Initialize should NOT have debug enabled")
	}

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"health": "debug",
		},
	})

	loggerAfter := GetLogger("health")

	// Logger should be cached (same pointer) with level updated via LevelVar
	if loggerBefore != loggerAfter {
		t.Error("Logger should be cached - same pointer before and after Initialize")
	}

	if !handlerBefore.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Cached logger should have debug enabled after Initialize updates LevelVar")
	}
}

func TestMultiHandlerDebugOutput(t *testing.T) {
	var buf bytes.Buffer

	debugHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	multi := NewMultiHandler(debugHandler, infoHandler)
	logger := slog.New(multi).With("module", "test")

	logger.Debug("debug only message")

	output := buf.String()
	if !strings.Contains(output, "debug only message") {
		t.Errorf("Debug message not written via MultiHandler. Output: %s", output)
	}

	// Only the debug handler should have accepted it
	count := strings.Count(output, "debug only message")
	if count != 1 {
		t.Errorf("Expected 1 debug message, got %d. Output: %s", count, output)
	}
}

func TestRingBufferCapturesEntries(t *testing.T) {
	resetState()

	Initialize(Config{Level: "info", Format: "text"})

	logger := GetLogger("stopper")
	logger.Info("stopping service", "service", "upsd", "pid", 1234)

	buffer := GetBuffer()
	if buffer == nil {
		t.Fatal("ring buffer not created by Initialize")
	}

	entries := buffer.ReadAll()
	var found *LogEntry
	for i := range entries {
		if entries[i].Message == "stopping service" {
			found = &entries[i]
			break
		}
	}
	if found == nil {
		t.Fatal("log entry not captured in ring buffer")
	}
	if found.Module != "stopper" {
		t.Errorf("entry module = %q, want %q", found.Module, "stopper")
	}
	if found.Attributes["service"] != "upsd" {
		t.Errorf("entry service attr = %v, want upsd", found.Attributes["service"])
	}
}

func TestRingBufferWrapAround(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Write(LogEntry{Timestamp: time.Now(), Message: string(rune('a' + i))})
	}

	entries := rb.ReadAll()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries after wrap, got %d", len(entries))
	}
	if entries[0].Message != "c" || entries[2].Message != "e" {
		t.Errorf("entries out of order after wrap: %v, %v, %v",
			entries[0].Message, entries[1].Message, entries[2].Message)
	}
	if entries[0].Seq != 3 || entries[2].Seq != 5 {
		t.Errorf("sequence numbers not monotonic across wrap: %d, %d, %d",
			entries[0].Seq, entries[1].Seq, entries[2].Seq)
	}

	last := rb.Last(2)
	if len(last) != 2 || last[0].Message != "d" || last[1].Message != "e" {
		t.Errorf("Last(2) wrong: %+v", last)
	}
}

func TestParseLevelValues(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		isNil bool
	}{
		{"debug", slog.LevelDebug, false},
		{"DEBUG", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input)
			if tt.isNil {
				if got != nil {
					t.Errorf("parseLevel(%q) = %v, want nil", tt.input, *got)
				}
			} else {
				if got == nil {
					t.Errorf("parseLevel(%q) = nil, want %v", tt.input, tt.want)
				} else if *got != tt.want {
					t.Errorf("parseLevel(%q) = %v, want %v", tt.input, *got, tt.want)
				}
			}
		})
	}
}
