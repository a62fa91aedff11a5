package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestLogger_WritesKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(LevelInfo, &buf).With("component", "scheduler")

	logger.Info("pass finished", "users", 3, "error", errors.New("calendar down"))
	logger.Debug("hidden")

	out := buf.String()
	for _, want := range []string{`"msg":"pass finished"`, `"component":"scheduler"`, `"users":3`, `"error":"calendar down"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output %s", want, out)
		}
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug entry must be filtered at info level: %s", out)
	}
}

func TestLogger_NilReceiverFallsBackToDefault(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
	logger.With("k", "v").Warn("still no panic")
}

func TestLogger_MirrorReceivesEnabledEntries(t *testing.T) {
	var got []string
	SetMirror(func(_ context.Context, level Level, msg string, _ ...any) {
		got = append(got, level.String()+":"+msg)
	})
	t.Cleanup(func() { SetMirror(nil) })

	logger := New(LevelInfo, &bytes.Buffer{})
	logger.Debug("filtered")
	logger.WarnContext(context.Background(), "calendar transient")

	if len(got) != 1 || got[0] != "warn:calendar transient" {
		t.Fatalf("unexpected mirrored entries %v", got)
	}
}

func TestLogger_RedactsTokenMaterial(t *testing.T) {
	var buf bytes.Buffer
	var mirrored []any
	SetMirror(func(_ context.Context, _ Level, _ string, args ...any) {
		mirrored = args
	})
	t.Cleanup(func() { SetMirror(nil) })

	args := []any{"user_id", "user-1", "refresh_token", "1//secret-refresh", "Access_Token", "ya29.secret"}
	New(LevelInfo, &buf).With("client_secret", "shh").Info("calendar reconnected", args...)

	out := buf.String()
	for _, secret := range []string{"1//secret-refresh", "ya29.secret", "shh"} {
		if strings.Contains(out, secret) {
			t.Fatalf("secret %q leaked into log output %s", secret, out)
		}
	}
	if !strings.Contains(out, `"user_id":"user-1"`) {
		t.Fatalf("expected non sensitive field in %s", out)
	}
	if mirrored[3] != redactedValue || mirrored[5] != redactedValue {
		t.Fatalf("expected mirrored args to be redacted, got %v", mirrored)
	}
	if args[3] != "1//secret-refresh" {
		t.Fatalf("caller args must not be modified")
	}
}
