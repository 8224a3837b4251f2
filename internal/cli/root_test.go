package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/matzehuels/rpviz/pkg/config"
	rperrors "github.com/matzehuels/rpviz/pkg/errors"
	"github.com/matzehuels/rpviz/pkg/pipeline"
	"github.com/matzehuels/rpviz/pkg/runlog"
)

// testEnv points every XDG directory into a temporary folder and writes a
// configuration file that keeps run records under it.
func testEnv(t *testing.T) (cfgPath, runsDir string) {
	t.Helper()
	root := t.TempDir()
	for _, v := range []string{"XDG_CONFIG_HOME", "XDG_CACHE_HOME", "XDG_DATA_HOME"} {
		t.Setenv(v, filepath.Join(root, strings.ToLower(v)))
	}
	runsDir = filepath.Join(root, "runs")
	cfgPath = filepath.Join(root, "rpviz.toml")
	cfg := "[cache]\ndisabled = true\n\n[runlog]\ndir = \"" + filepath.ToSlash(runsDir) + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath, runsDir
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func testModel() string {
	return filepath.Join("..", "..", "pkg", "sbml", "testdata", "rp_1_1.xml")
}

func TestRootCommandTree(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	for _, name := range []string{"build", "bundle", "serve", "sandbox", "runs", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("missing command %q", name)
		}
	}
	for _, flag := range []string{"verbose", "config"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag --%s", flag)
		}
	}
}

func TestBuildCommand(t *testing.T) {
	cfgPath, runsDir := testEnv(t)
	out := filepath.Join(t.TempDir(), "viewer")
	doc := filepath.Join(t.TempDir(), "pathways.html")
	pub := t.TempDir()

	err := execute(t, "build", "--config", cfgPath,
		"-i", testModel(), "--uid", "survey-9", "--chassis", "E. coli",
		"-o", out, "-a", doc, "--skip-depiction", "--publish", pub)
	if err != nil {
		t.Fatal(err)
	}

	index, err := os.ReadFile(filepath.Join(out, "index.html"))
	if err != nil || !strings.Contains(string(index), "survey-9") {
		t.Errorf("index.html lacks the identifier (err %v)", err)
	}
	if _, err := os.Stat(doc); err != nil {
		t.Errorf("autonomous document: %v", err)
	}
	if _, err := os.Stat(filepath.Join(pub, "pathways.html")); err != nil {
		t.Errorf("published document: %v", err)
	}

	store, err := runlog.NewFileStore(runsDir)
	if err != nil {
		t.Fatal(err)
	}
	rec, err := store.Get(context.Background(), "survey-9")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Chassis != "E. coli" || rec.Bundle != filepath.Join(pub, "pathways.html") {
		t.Errorf("record = %+v", rec)
	}
}

func TestBuildCommandErrors(t *testing.T) {
	cfgPath, _ := testEnv(t)
	tests := []struct {
		name string
		args []string
		code rperrors.Code
	}{
		{"publish without autonomous", []string{"-i", testModel(), "--uid", "u", "-o", t.TempDir(), "--publish", t.TempDir()}, rperrors.ErrCodeInvalidInput},
		{"no output", []string{"-i", testModel(), "--uid", "u"}, rperrors.ErrCodeInvalidInput},
		{"empty identifier", []string{"-i", testModel(), "--uid", "", "-o", t.TempDir(), "--skip-depiction"}, rperrors.ErrCodeInjection},
		{"bad format", []string{"-i", testModel(), "--uid", "u", "-o", t.TempDir(), "--input-format", "zip"}, rperrors.ErrCodeInputFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"build", "--config", cfgPath}, tt.args...)
			if err := execute(t, args...); !rperrors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRequiredFlags(t *testing.T) {
	cfgPath, _ := testEnv(t)
	tests := []struct {
		name string
		args []string
		flag string
	}{
		{"build without uid", []string{"build", "-i", testModel(), "-o", t.TempDir()}, "uid"},
		{"build without input", []string{"build", "--uid", "u", "-o", t.TempDir()}, "input"},
		{"sandbox without uid", []string{"sandbox", "-i", testModel(), "-a", filepath.Join(t.TempDir(), "doc.html")}, "uid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{tt.args[0], "--config", cfgPath}, tt.args[1:]...)
			err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), `"`+tt.flag+`"`) {
				t.Errorf("err = %v, want missing %s", err, tt.flag)
			}
		})
	}
}

func TestBundleCommand(t *testing.T) {
	cfgPath, _ := testEnv(t)
	out := filepath.Join(t.TempDir(), "viewer")
	if err := execute(t, "build", "--config", cfgPath, "-i", testModel(), "--uid", "s", "-o", out, "--skip-depiction", "--no-record"); err != nil {
		t.Fatal(err)
	}
	doc := filepath.Join(t.TempDir(), "doc.html")
	if err := execute(t, "bundle", out, "-o", doc); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(doc)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), `src="js/viewer.js"`) {
		t.Error("script reference left in the bundle")
	}
}

func TestApplyConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Workers = 8
	cfg.CofactorTable = "cofactors.tsv"

	flags := pflag.NewFlagSet("build", pflag.ContinueOnError)
	flags.Int("workers", 0, "")
	flags.Duration("depiction-timeout", 0, "")
	if err := flags.Parse([]string{"--workers", "2"}); err != nil {
		t.Fatal(err)
	}

	opts := pipeline.Options{Workers: 2}
	applyConfig(&opts, cfg, flags)
	if opts.Workers != 2 {
		t.Errorf("Workers = %d, flag should win", opts.Workers)
	}
	if opts.CofactorTable != "cofactors.tsv" {
		t.Errorf("CofactorTable = %q", opts.CofactorTable)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		12:         "12 B",
		2048:       "2.0 KiB",
		3 << 20:    "3.0 MiB",
		1536 << 20: "1.5 GiB",
	}
	for n, want := range tests {
		if got := formatBytes(n); got != want {
			t.Errorf("formatBytes(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestStatsLine(t *testing.T) {
	st := pipeline.Stats{Pathways: 2, Chemicals: 7, Cofactors: 2}
	st.Depictions.Rendered = 3
	st.Depictions.Cached = 2
	if got, want := statsLine(st), "2 pathways · 7 chemicals · 2 cofactors · 5 depictions · 2 cached"; got != want {
		t.Errorf("statsLine() = %q, want %q", got, want)
	}
}
