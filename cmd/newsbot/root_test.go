package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maine/anime_news_bot/internal/config"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Anime Test Feed</title>
    <item>
      <guid>t-1</guid>
      <title>Spy x Family Season 3 premiere date</title>
      <link>https://example.com/t-1</link>
      <description>&lt;p&gt;The third season premieres in October.&lt;/p&gt;</description>
    </item>
    <item>
      <guid>t-2</guid>
      <title>Quarterly earnings report</title>
      <link>https://example.com/t-2</link>
    </item>
  </channel>
</rss>`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "pipeline.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func feedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testFeed))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "newsbot dev") {
		t.Errorf("version output = %q", out)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "watch", "test-message", "discover", "version"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
	if f := root.PersistentFlags().Lookup("config"); f == nil || f.DefValue != defaultConfigPath {
		t.Errorf("--config default = %v", f)
	}
}

func TestRun_StartupErrors(t *testing.T) {
	for _, name := range []string{
		"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "TWILIO_WHATSAPP_FROM", "TWILIO_WHATSAPP_TO",
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "GEMINI_API_KEY",
	} {
		t.Setenv(name, "")
	}
	dir := t.TempDir()
	noEnv := filepath.Join(dir, "missing.env")

	t.Run("missing config file", func(t *testing.T) {
		_, _, err := execute(t, "run", "--config", filepath.Join(dir, "nope.yaml"), "--env-file", noEnv)
		if err == nil {
			t.Fatal("run should fail without config")
		}
	})

	t.Run("no channel enabled", func(t *testing.T) {
		path := writeConfig(t, dir, "source:\n  feeds:\n    - url: https://example.com/rss\n")
		_, _, err := execute(t, "run", "--config", path, "--env-file", noEnv)
		if !errors.Is(err, config.ErrNoChannel) {
			t.Fatalf("run error = %v, want ErrNoChannel", err)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		path := writeConfig(t, dir, "source:\n  feeds:\n    - url: https://example.com/rss\nnotify:\n  whatsapp:\n    enabled: true\n")
		_, _, err := execute(t, "run", "--config", path, "--env-file", noEnv)
		if err == nil || !strings.Contains(err.Error(), "TWILIO_ACCOUNT_SID") {
			t.Fatalf("run error = %v, want missing TWILIO_ACCOUNT_SID", err)
		}
	})

	t.Run("bad schedule", func(t *testing.T) {
		path := writeConfig(t, dir, "source:\n  feeds:\n    - url: https://example.com/rss\n")
		_, _, err := execute(t, "watch", "--config", path, "--env-file", noEnv, "--dry-run", "--schedule", "sometimes")
		if err == nil || !strings.Contains(err.Error(), "parse schedule") {
			t.Fatalf("watch error = %v, want schedule error", err)
		}
	})
}

func TestRun_DryRun(t *testing.T) {
	srv := feedServer(t)
	dir := t.TempDir()
	seenPath := filepath.Join(dir, "state", "seen_ids.txt")
	quotaPath := filepath.Join(dir, "state", "daily_count.json")

	path := writeConfig(t, dir, fmt.Sprintf(`
source:
  feeds:
    - name: test
      url: %s
storage:
  seen_path: %s
  quota_path: %s
notify:
  send_interval: 1ms
log:
  format: json
`, srv.URL, seenPath, quotaPath))

	_, stderr, err := execute(t, "--config", path, "--env-file", filepath.Join(dir, "none.env"), "--dry-run")
	if err != nil {
		t.Fatalf("dry run error = %v\n%s", err, stderr)
	}

	if strings.Count(stderr, "Dry run: message not sent") != 1 {
		t.Errorf("expected exactly one relevant item to be logged, got:\n%s", stderr)
	}
	if !strings.Contains(stderr, "Spy x Family Season 3 premiere date") {
		t.Errorf("log should contain rendered message, got:\n%s", stderr)
	}
	for _, p := range []string{seenPath, quotaPath} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("dry run must not create %s", p)
		}
	}
}

func TestDiscoverCmd(t *testing.T) {
	srv := feedServer(t)

	out, _, err := execute(t, "discover", srv.URL)
	if err != nil {
		t.Fatalf("discover error = %v", err)
	}
	for _, want := range []string{"source:", "feeds:", "name: Anime Test Feed", "url: " + srv.URL} {
		if !strings.Contains(out, want) {
			t.Errorf("discover output should contain %q, got:\n%s", want, out)
		}
	}
}
