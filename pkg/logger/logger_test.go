package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestScope(t *testing.T) {
	tests := []struct {
		name  string
		scope string
	}{
		{"basic scope", "assetcache"},
		{"nested scope", "hero.session"},
		{"empty scope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := Scope(tt.scope)
			if attr.Key != "scope" {
				t.Errorf("Scope() key = %q, want %q", attr.Key, "scope")
			}
			if attr.Value.String() != tt.scope {
				t.Errorf("Scope() value = %q, want %q", attr.Value.String(), tt.scope)
			}
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"simple error", errors.New("fetch failed")},
		{"nil error", nil},
		{"joined error", errors.Join(errors.New("outer"), errors.New("inner"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := Error(tt.err)
			if attr.Key != "error" {
				t.Errorf("Error() key = %q, want %q", attr.Key, "error")
			}
			if got := attr.Value.Any(); got != tt.err {
				t.Errorf("Error() value = %v, want %v", got, tt.err)
			}
		})
	}
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level    string
		enabled  slog.Level
		disabled *slog.Level
	}{
		{level: "", enabled: slog.LevelInfo, disabled: ptr(slog.LevelDebug)},
		{level: "debug", enabled: slog.LevelDebug},
		{level: "DeBuG", enabled: slog.LevelDebug},
		{level: "warn", enabled: slog.LevelWarn, disabled: ptr(slog.LevelInfo)},
		{level: "warning", enabled: slog.LevelWarn, disabled: ptr(slog.LevelInfo)},
		{level: "error", enabled: slog.LevelError, disabled: ptr(slog.LevelWarn)},
		{level: "bogus", enabled: slog.LevelInfo, disabled: ptr(slog.LevelDebug)},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run("level="+tt.level, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			t.Setenv("GO_ENV", "")

			l := NewLogger()
			if l == nil {
				t.Fatal("NewLogger() returned nil")
			}
			if !l.Enabled(ctx, tt.enabled) {
				t.Errorf("level %v should be enabled for LOG_LEVEL=%q", tt.enabled, tt.level)
			}
			if tt.disabled != nil && l.Enabled(ctx, *tt.disabled) {
				t.Errorf("level %v should be disabled for LOG_LEVEL=%q", *tt.disabled, tt.level)
			}
		})
	}
}

func TestNewLogger_ProductionJSON(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("GO_ENV", "production")

	l := NewLogger()
	if _, ok := l.Handler().(*slog.JSONHandler); !ok {
		t.Errorf("production logger handler = %T, want *slog.JSONHandler", l.Handler())
	}
}

func ptr(l slog.Level) *slog.Level { return &l }
