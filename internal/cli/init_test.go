package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"analizador/internal/config"
)

func TestSetupLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&buf, "warn", "test")
	logger.Info("hidden")
	logger.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if logger.Component() != "test" {
		t.Errorf("Component() = %q", logger.Component())
	}
}

func TestLoadEnvFileKeepsEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ANALIZADOR_TEST_A=from-file\nANALIZADOR_TEST_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ANALIZADOR_TEST_A", "from-env")
	t.Setenv("ANALIZADOR_TEST_B", "")
	os.Unsetenv("ANALIZADOR_TEST_B")

	LoadEnvFile(path)
	if got := os.Getenv("ANALIZADOR_TEST_A"); got != "from-env" {
		t.Errorf("A = %q, environment should win", got)
	}
	if got := os.Getenv("ANALIZADOR_TEST_B"); got != "from-file" {
		t.Errorf("B = %q, want from-file", got)
	}

	// A missing file is not an error.
	LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATA_BACKEND", "file")
	t.Setenv("LOG_LEVEL", "verbose")
	if _, err := LoadAndValidateConfig(); err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Fatalf("expected log level error, got %v", err)
	}
	t.Setenv("LOG_LEVEL", "debug")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestInitFileStore(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		UploadDir:   filepath.Join(dir, "up"),
		DataDir:     filepath.Join(dir, "data"),
		DefaultFile: filepath.Join(dir, "data", "data.xlsx"),
		MaxUploadMB: 1,
	}
	fs, err := InitFileStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{cfg.UploadDir, cfg.DataDir} {
		if info, err := os.Stat(d); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", d, err)
		}
	}
	if fs.MaxBytes != 1<<20 {
		t.Errorf("MaxBytes = %d", fs.MaxBytes)
	}
}
