package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestSaveDefaultConfigCreatesExampleTemplate(t *testing.T) {
	t.Cleanup(func() {
		cfgFile = ""
		viper.Reset()
	})

	tmpConfig := filepath.Join(t.TempDir(), "create-template.yaml")
	cfgFile = tmpConfig
	viper.Reset()

	if err := saveDefaultConfig(); err != nil {
		t.Fatalf("unexpected error creating config: %v", err)
	}

	content, err := os.ReadFile(tmpConfig)
	if err != nil {
		t.Fatalf("expected config file to exist: %v", err)
	}

	text := string(content)
	if !strings.Contains(text, "# terminy configuration") {
		t.Fatalf("expected example header in config file, got:\n%s", text)
	}
	if !strings.Contains(text, "api:") || !strings.Contains(text, "base_url: \"https://api.nfz.gov.pl/app-itl-api\"") {
		t.Fatalf("expected NFZ API URL example in config file, got:\n%s", text)
	}
	for _, key := range []string{"spreadsheet:", "url_cache_ttl: 6h", "geocoder:", "source: api", "path: \"terminy.db\""} {
		if !strings.Contains(text, key) {
			t.Fatalf("expected %q in config file, got:\n%s", key, text)
		}
	}
}

func TestWriteConfigCreated(t *testing.T) {
	var out bytes.Buffer
	if err := writeConfigCreated(&out, "/tmp/.terminy.yaml", true); err != nil {
		t.Fatalf("write message: %v", err)
	}
	text := out.String()
	if !strings.Contains(text, "created at: /tmp/.terminy.yaml") || !strings.Contains(text, "location.latitude/longitude") {
		t.Fatalf("unexpected created message:\n%s", text)
	}

	out.Reset()
	if err := writeConfigCreated(&out, "/tmp/.terminy.yaml", false); err != nil {
		t.Fatalf("write message: %v", err)
	}
	if out.String() != "Config file already exists at: /tmp/.terminy.yaml\n" {
		t.Fatalf("unexpected existing message %q", out.String())
	}
}

func TestDeleteConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".terminy.yaml")
	if err := os.WriteFile(path, []byte("search:\n  source: sheet\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	if err := deleteConfigFile(&out, path, "terminy.db"); err != nil {
		t.Fatalf("delete config: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected config file to be removed")
	}
	if !strings.Contains(out.String(), "terminy delete --db terminy.db") {
		t.Fatalf("expected database hint, got %q", out.String())
	}

	if err := deleteConfigFile(&out, "", "terminy.db"); err == nil {
		t.Fatalf("expected error without an active config")
	}
	if err := deleteConfigFile(&out, path, ""); err == nil {
		t.Fatalf("expected error for an already deleted file")
	}
}

func TestSaveDefaultConfigDoesNotOverwriteExistingFile(t *testing.T) {
	t.Cleanup(func() {
		cfgFile = ""
		viper.Reset()
	})

	tmpConfig := filepath.Join(t.TempDir(), "existing.yaml")
	original := "search:\n  source: sheet\nlocation:\n  latitude: 50.67\n  longitude: 17.92\n"
	if err := os.WriteFile(tmpConfig, []byte(original), 0o644); err != nil {
		t.Fatalf("failed writing initial config: %v", err)
	}

	cfgFile = tmpConfig
	viper.Reset()

	if err := saveDefaultConfig(); err != nil {
		t.Fatalf("unexpected error creating config: %v", err)
	}

	content, err := os.ReadFile(tmpConfig)
	if err != nil {
		t.Fatalf("failed reading existing config after create: %v", err)
	}
	if string(content) != original {
		t.Fatalf("expected existing config to remain unchanged")
	}
}
