// Package sandbox runs rpviz inside an isolated container.
//
// The core pipeline never depends on a container runtime. [Executor] is the
// collaborator boundary: it runs a command in an image with host folders
// mounted and reports stdout, stderr and the exit code. [DockerCLI] is the
// implementation backed by the docker binary; [RunTool] stages an input into
// a mounted folder, runs rpviz build in the image and copies the autonomous
// document back out.
package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Volume mounts a host folder into the container.
type Volume struct {
	Host      string
	Container string
	ReadOnly  bool
}

// Spec describes one containerized command.
type Spec struct {
	Image   string
	Command []string
	Volumes []Volume
	Env     map[string]string
	WorkDir string
}

// Result is the outcome of a command that ran. A non-zero exit code is
// reported here and is not an error.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor runs a command in an isolated environment.
type Executor interface {
	Execute(ctx context.Context, spec Spec) (Result, error)
}

// DockerCLI executes specs with "docker run".
type DockerCLI struct {
	Binary string // default "docker"
}

func (d DockerCLI) binary() string {
	if d.Binary == "" {
		return "docker"
	}
	return d.Binary
}

// Execute runs spec and waits for it to exit. The container is removed
// afterwards. An error means the container could not be run at all.
func (d DockerCLI) Execute(ctx context.Context, spec Spec) (Result, error) {
	if spec.Image == "" {
		return Result{}, errors.New("sandbox: image required")
	}
	bin, err := exec.LookPath(d.binary())
	if err != nil {
		return Result{}, fmt.Errorf("sandbox: %s not found: %w", d.binary(), err)
	}

	cmd := exec.CommandContext(ctx, bin, d.Args(spec)...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	err = cmd.Run()
	res := Result{Stdout: out.String(), Stderr: errBuf.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, fmt.Errorf("sandbox: %s run: %w", d.binary(), err)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	return res, nil
}

// Args returns the docker command line for spec, without the binary.
func (d DockerCLI) Args(spec Spec) []string {
	args := []string{"run", "--rm", "--network", "none"}
	for _, v := range spec.Volumes {
		mount := v.Host + ":" + v.Container
		if v.ReadOnly {
			mount += ":ro"
		}
		args = append(args, "-v", mount)
	}
	for _, k := range sortedKeys(spec.Env) {
		args = append(args, "-e", k+"="+spec.Env[k])
	}
	if spec.WorkDir != "" {
		args = append(args, "-w", spec.WorkDir)
	}
	args = append(args, spec.Image)
	return append(args, spec.Command...)
}

// Diagnostics splits log output into error and warning lines. Lines are
// classified by their level token (ERRO/ERROR, WARN/WARNING).
func Diagnostics(stderr string) (errs, warnings []string) {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, f := range strings.Fields(line) {
			switch strings.ToUpper(strings.Trim(f, "[]:")) {
			case "ERRO", "ERROR", "FATA", "FATAL":
				errs = append(errs, line)
			case "WARN", "WARNING":
				warnings = append(warnings, line)
			default:
				continue
			}
			break
		}
	}
	return errs, warnings
}
