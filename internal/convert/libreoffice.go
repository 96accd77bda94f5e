// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Runner executes a program with an argument list. Tests substitute it.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// Run starts name with args and waits for it. The process is killed when
// ctx is done.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = 5 * time.Second
	return cmd.Run()
}

// LibreOffice converts documents with a local LibreOffice installation.
type LibreOffice struct {
	// Binary is the executable name or path ("libreoffice", "soffice").
	Binary string
	Runner Runner
}

// NewLibreOffice returns a converter that runs binary through os/exec.
func NewLibreOffice(binary string) *LibreOffice {
	return &LibreOffice{Binary: binary, Runner: ExecRunner{}}
}

// Convert runs "<binary> --headless --convert-to pdf --outdir <dir> <source>".
func (l *LibreOffice) Convert(ctx context.Context, sourcePath, outputDir string) error {
	src, err := filepath.Abs(sourcePath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", sourcePath, err)
	}
	out, err := filepath.Abs(outputDir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", outputDir, err)
	}

	stderr := &tailBuffer{limit: 4096}
	if err := l.Runner.Run(ctx, l.Binary, pdfArgs(src, out), io.Discard, stderr); err != nil {
		return withOutput(fmt.Errorf("%s: %w", l.Binary, err), stderr)
	}
	return nil
}

// pdfArgs builds the LibreOffice argument list. The source is last and,
// being absolute or container-rooted, cannot be mistaken for an option.
func pdfArgs(sourcePath, outputDir string) []string {
	return []string{"--headless", "--convert-to", "pdf", "--outdir", outputDir, sourcePath}
}

func withOutput(err error, stderr *tailBuffer) error {
	msg := strings.TrimSpace(stderr.String())
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
