package sandbox

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	rperrors "github.com/matzehuels/rpviz/pkg/errors"
)

// MountPoint is where RunTool mounts its staging folder.
const MountPoint = "/home/tmp_output"

// ToolOptions configures [RunTool].
type ToolOptions struct {
	Image      string
	Input      string // tar archive or model file on the host
	Format     string // passed as --input-format when set
	Chassis    string
	Target     string
	UniqueID   string
	Autonomous string // host path receiving the autonomous document
	Logger     *log.Logger
}

// ToolResult is the outcome of a successful [RunTool].
type ToolResult struct {
	Result
	Warnings []string
}

// RunTool runs "rpviz build" through exec. The input is copied into a
// temporary folder mounted at [MountPoint]; the autonomous document written
// there is copied to opts.Autonomous. The staging folder is always removed.
//
// ERRO lines on stderr or a non-zero exit fail the run; WARN lines are
// returned as warnings.
func RunTool(ctx context.Context, exec Executor, opts ToolOptions) (*ToolResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Input == "" || opts.Autonomous == "" {
		return nil, rperrors.New(rperrors.ErrCodeInvalidInput, "input and autonomous output are required")
	}
	info, err := os.Stat(opts.Input)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeInputFormat, err, "input %s", opts.Input)
	}
	if info.IsDir() {
		return nil, rperrors.New(rperrors.ErrCodeInputFormat, "input %s: sandboxed runs take an archive or a model file", opts.Input)
	}

	stage, err := os.MkdirTemp("", "rpviz-sandbox-")
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "create staging folder")
	}
	defer os.RemoveAll(stage)

	inName := "input" + inputExt(opts.Input)
	if err := copyFile(opts.Input, filepath.Join(stage, inName)); err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "stage input")
	}

	spec := Spec{
		Image:   opts.Image,
		Command: buildCommand(opts, inName),
		Volumes: []Volume{{Host: stage, Container: MountPoint}},
	}
	logger.Debug("running sandbox", "image", spec.Image, "command", strings.Join(spec.Command, " "))
	res, err := exec.Execute(ctx, spec)
	if err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeInternal, err, "sandbox")
	}

	errs, warnings := Diagnostics(res.Stderr)
	for _, w := range warnings {
		logger.Warn(w)
	}
	if len(errs) > 0 || res.ExitCode != 0 {
		msg := strings.Join(errs, "; ")
		if msg == "" {
			msg = strings.TrimSpace(res.Stderr)
		}
		return nil, rperrors.New(rperrors.ErrCodeInternal, "sandboxed build exited with status %d: %s", res.ExitCode, msg)
	}

	produced := filepath.Join(stage, "autonomous.html")
	if err := os.MkdirAll(filepath.Dir(opts.Autonomous), 0o755); err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "create %s", filepath.Dir(opts.Autonomous))
	}
	if err := copyFile(produced, opts.Autonomous); err != nil {
		return nil, rperrors.Wrap(rperrors.ErrCodeIO, err, "copy autonomous document")
	}
	return &ToolResult{Result: res, Warnings: warnings}, nil
}

func buildCommand(opts ToolOptions, inName string) []string {
	cmd := []string{
		"rpviz", "build",
		"--input", MountPoint + "/" + inName,
		"--output", MountPoint + "/viewer",
		"--autonomous", MountPoint + "/autonomous.html",
		"--uid", opts.UniqueID,
	}
	if opts.Format != "" {
		cmd = append(cmd, "--input-format", opts.Format)
	}
	if opts.Chassis != "" {
		cmd = append(cmd, "--chassis", opts.Chassis)
	}
	if opts.Target != "" {
		cmd = append(cmd, "--target", opts.Target)
	}
	return cmd
}

// inputExt keeps compound archive extensions so the build can detect them.
func inputExt(path string) string {
	lower := strings.ToLower(filepath.Base(path))
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tar.zst", ".tar.xz"} {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return filepath.Ext(lower)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
