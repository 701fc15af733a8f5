package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/desertthunder/ytbridge/internal/models"
	"github.com/desertthunder/ytbridge/internal/repositories"
	"github.com/desertthunder/ytbridge/internal/shared"
	tu "github.com/desertthunder/ytbridge/internal/testing"
)

// testEnv is a runner wired to fakes, with config and credentials under a temp directory.
type testEnv struct {
	dir        string
	configPath string
	output     *bytes.Buffer
	catalog    *tu.FakeCatalog
	runner     *Runner
}

func newTestEnv(t *testing.T, input string) *testEnv {
	t.Helper()
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.toml")
	config := "[paths]\nbase_dir = \"" + filepath.ToSlash(dir) + "\"\n\n[stream]\ndatabase = \"streams.db\"\n"
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	catalog := tu.NewFakeCatalog(nil)
	factory := &tu.FakeFactory{Authed: catalog, Anonymous: catalog}
	output := &bytes.Buffer{}

	runner := NewRunner(RunnerOpts{
		Logger:   shared.NewLogger(&bytes.Buffer{}),
		Input:    strings.NewReader(input),
		Output:   output,
		Factory:  factory.Factory(),
		Resolver: &tu.FakeResolver{URL: "https://media.example/"},
	})

	return &testEnv{dir: dir, configPath: configPath, output: output, catalog: catalog, runner: runner}
}

func (e *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	argv := append([]string{"ytbridge", "--config", e.configPath}, args...)
	return newApp(e.runner).Run(context.Background(), argv)
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{Config: config, Logger: logger, Output: output, ConfigPath: "c.toml"})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "c.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"key\":\"value\"}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("returns error on unmarshalable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			if err := runner.writeJSON(make(chan int), false); err == nil {
				t.Error("expected error for unmarshalable data")
			}
		})

		t.Run("returns error on write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(0, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("returns error on write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlainln("hello %s", "world"); err == nil {
				t.Error("expected write error")
			}
		})

		t.Run("formats and appends newline", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("hello %s", "world")
			if output.String() != "hello world\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing file uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")})

			if err := runner.loadConfig(); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config.Server.MaxInFlight != 32 {
				t.Errorf("expected default max_in_flight, got %d", runner.config.Server.MaxInFlight)
			}
		})

		t.Run("invalid file fails", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[server\nbroken"), 0644); err != nil {
				t.Fatalf("Failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{ConfigPath: path})
			if err := runner.loadConfig(); err == nil {
				t.Error("expected parse error")
			}
		})
	})
}

func TestParseArgs(t *testing.T) {
	tt := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{name: "string", pairs: []string{"query=hello world"}, want: map[string]any{"query": "hello world"}},
		{name: "number", pairs: []string{"limit=5"}, want: map[string]any{"limit": 5.0}},
		{name: "bool", pairs: []string{"flag=true"}, want: map[string]any{"flag": true}},
		{name: "null", pairs: []string{"filter=null"}, want: map[string]any{"filter": nil}},
		{name: "quoted string", pairs: []string{`id="42"`}, want: map[string]any{"id": "42"}},
		{name: "value with equals", pairs: []string{"params=a=b"}, want: map[string]any{"params": "a=b"}},
		{name: "empty value", pairs: []string{"query="}, want: map[string]any{"query": ""}},
		{name: "missing separator", pairs: []string{"query"}, wantErr: true},
		{name: "missing key", pairs: []string{"=x"}, wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseArgs(tc.pairs)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Errorf("%s: expected %#v, got %#v", k, v, got[k])
				}
			}
		})
	}
}

func TestCommands(t *testing.T) {
	t.Run("serve is the default action", func(t *testing.T) {
		env := newTestEnv(t, "{\"command\":\"ping\",\"callId\":1}\n\n{\"command\":\"get_stream_url\",\"videoId\":\"v1\",\"callId\":2}\n")

		if err := env.run(t); err != nil {
			t.Fatalf("serve failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(env.output.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected 2 responses, got %d: %q", len(lines), env.output.String())
		}
		byID := map[int64]gjson.Result{}
		for _, line := range lines {
			res := gjson.Parse(line)
			byID[res.Get("callId").Int()] = res
		}
		if byID[1].Get("data").String() != "pong" {
			t.Errorf("unexpected ping response %s", byID[1].Raw)
		}
		if byID[2].Get("url").String() != "https://media.example/v1" {
			t.Errorf("unexpected stream response %s", byID[2].Raw)
		}
	})

	t.Run("call prints the response", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.catalog.Responses["Search:songs"] = `[{"videoId":"v1","title":"Song","artists":[{"name":"A","id":"a1"}]}]`
		env.catalog.Responses["Search:artists"] = `[]`

		if err := env.run(t, "call", "search", "--arg", "query=song", "--call-id", "c1", "--pretty=false"); err != nil {
			t.Fatalf("call failed: %v", err)
		}

		res := gjson.Parse(strings.TrimSpace(env.output.String()))
		if res.Get("status").String() != "ok" || res.Get("callId").String() != "c1" {
			t.Errorf("unexpected envelope %s", res.Raw)
		}
		if res.Get("tracks.0.id").String() != "v1" {
			t.Errorf("expected normalized track, got %s", res.Get("tracks").Raw)
		}
	})

	t.Run("call reports error envelopes", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run(t, "call", "nope"); err == nil {
			t.Error("expected error for unknown command")
		}
		if !strings.Contains(env.output.String(), "Unknown command: nope") {
			t.Errorf("expected error envelope, got %s", env.output.String())
		}
	})

	t.Run("auth cookie then status then logout", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.catalog.Responses["AccountInfo"] = `{"accountName":"Tester"}`
		curl := `curl 'https://music.youtube.com/youtubei/v1/browse' -H 'Cookie: SID=abc; __Secure-3PAPISID=xyz'`

		if err := env.run(t, "auth", "cookie", "--curl", curl); err != nil {
			t.Fatalf("auth cookie failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(env.dir, "browser.json"))

		env.output.Reset()
		if err := env.run(t, "auth", "status"); err != nil {
			t.Fatalf("auth status failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Credential: cookie") {
			t.Errorf("expected cookie credential, got %s", env.output.String())
		}

		if err := env.run(t, "auth", "logout"); err != nil {
			t.Fatalf("auth logout failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(env.dir, "browser.json")); !os.IsNotExist(err) {
			t.Error("expected browser.json to be removed")
		}
	})

	t.Run("auth cookie needs exactly one source", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run(t, "auth", "cookie"); err == nil {
			t.Error("expected error without --curl or --curl-file")
		}
		if err := env.run(t, "auth", "cookie", "--curl", "x", "--curl-file", "y"); err == nil {
			t.Error("expected error with both sources")
		}
	})

	t.Run("cache list prune clear", func(t *testing.T) {
		env := newTestEnv(t, "")
		if err := env.run(t, "setup", "database"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}

		db, err := shared.OpenStore(filepath.Join(env.dir, "streams.db"))
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		repo := repositories.NewStreamRepository(db)
		ctx := context.Background()
		for id, offset := range map[string]time.Duration{"live": time.Hour, "old": -time.Hour} {
			if err := repo.Put(ctx, &models.StreamURL{VideoID: id, URL: "https://a/" + id, ExpiresAt: time.Now().Add(offset)}); err != nil {
				t.Fatalf("failed to seed: %v", err)
			}
		}
		db.Close()

		env.output.Reset()
		if err := env.run(t, "cache", "list", "--all", "--json"); err != nil {
			t.Fatalf("cache list failed: %v", err)
		}
		if n := len(gjson.Parse(env.output.String()).Array()); n != 2 {
			t.Errorf("expected 2 stored urls, got %d", n)
		}

		env.output.Reset()
		if err := env.run(t, "cache", "prune"); err != nil {
			t.Fatalf("cache prune failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Removed 1 expired") {
			t.Errorf("unexpected prune output %s", env.output.String())
		}

		env.output.Reset()
		if err := env.run(t, "cache", "clear"); err != nil {
			t.Fatalf("cache clear failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Removed 1 stream URLs") {
			t.Errorf("unexpected clear output %s", env.output.String())
		}
	})

	t.Run("export writes files", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.catalog.Responses["Playlist:PL1"] = `{"id":"PL1","title":"Mix","tracks":[{"videoId":"v1","title":"Song","artists":[{"name":"A"}]}]}`
		out := filepath.Join(env.dir, "out")

		if err := env.run(t, "export", "--format", "csv", "--output", out, "--rate-limit", "100", "PL1"); err != nil {
			t.Fatalf("export failed: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(out, "export_manifest.json"))
		if !strings.Contains(env.output.String(), "Exported 1/1") {
			t.Errorf("unexpected export output %s", env.output.String())
		}
	})

	t.Run("export needs ids", func(t *testing.T) {
		env := newTestEnv(t, "")
		if err := env.run(t, "export"); err == nil {
			t.Error("expected error without playlist ids")
		}
	})

	t.Run("setup config", func(t *testing.T) {
		env := newTestEnv(t, "")
		path := filepath.Join(env.dir, "fresh.toml")

		app := newApp(env.runner)
		if err := app.Run(context.Background(), []string{"ytbridge", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "[server]") {
			t.Error("expected example config to be written")
		}
	})
}
