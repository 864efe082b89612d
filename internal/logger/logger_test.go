package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestResolveLogFilePathCreatesDefaultDir(t *testing.T) {
	tmpDir := t.TempDir()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("get wd failed: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}

	got, err := resolveLogFilePath(Options{})
	if err != nil {
		t.Fatalf("resolve default log path failed: %v", err)
	}
	if filepath.Base(got) != defaultLogFilename {
		t.Fatalf("unexpected log filename: %s", filepath.Base(got))
	}
	if filepath.Base(filepath.Dir(got)) != defaultLogDirName {
		t.Fatalf("unexpected log dir: %s", filepath.Dir(got))
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestNewReleaseWritesJSONEvents(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("release", Options{Dir: tmpDir, Filename: "release.log"})
	log.Sugar().Infow("order_created", "order_number", "EU01012026-001")
	_ = log.Sync()

	content, err := os.ReadFile(filepath.Join(tmpDir, "release.log"))
	if err != nil {
		t.Fatalf("read release log failed: %v", err)
	}
	text := string(content)
	if !strings.Contains(text, `"event":"order_created"`) {
		t.Fatalf("expected event key in log line, got=%s", text)
	}
	if !strings.Contains(text, "EU01012026-001") {
		t.Fatalf("expected order number in log line, got=%s", text)
	}
}

func TestNewDebugDoesNotWriteFile(t *testing.T) {
	tmpDir := t.TempDir()
	log := New("debug", Options{Dir: tmpDir, Filename: "debug.log"})
	log.Info("debug-log-test")
	_ = log.Sync()

	if _, err := os.Stat(filepath.Join(tmpDir, "debug.log")); !os.IsNotExist(err) {
		t.Fatalf("debug mode should not create log file")
	}
}

func TestResolveLevel(t *testing.T) {
	cases := []struct {
		raw   string
		debug bool
		want  zap.AtomicLevel
	}{
		{raw: "", debug: true, want: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{raw: "", debug: false, want: zap.NewAtomicLevelAt(zap.InfoLevel)},
		{raw: "WARN", debug: true, want: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{raw: "nonsense", debug: false, want: zap.NewAtomicLevelAt(zap.InfoLevel)},
	}
	for _, tc := range cases {
		got := resolveLevel(tc.raw, tc.debug)
		if got.Level() != tc.want.Level() {
			t.Fatalf("resolveLevel(%q,%v) want %s got %s", tc.raw, tc.debug, tc.want.Level(), got.Level())
		}
	}
}
