// Package pdfa converts PDF documents to PDF/A for long-term archival,
// by shelling out to an external converter binary (e.g. Ghostscript's
// gs -dPDFA, or a bundled "pdftoarchive" tool) against files staged on
// an afero.Fs. It is a second external collaborator alongside
// pkg/devtools's browser worker pool: same worker-pool shape (bounded
// concurrency, checkout a slot, do blocking subprocess work, release),
// different domain.
package pdfa

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/semaphore"
)

// Converter is the narrow interface Pool exposes to callers, so
// cmd/printpdf (and tests) can substitute a fake without spinning up a
// real converter binary.
type Converter interface {
	Convert(ctx context.Context, pdf []byte) ([]byte, error)
}

// Pool runs up to the concurrency given to NewPool conversions at a time,
// using a golang.org/x/sync/semaphore.Weighted to bound how many converter
// subprocesses run concurrently, and an afero.Fs to stage input/output
// files. The converter subprocess uses the same paths on the real
// filesystem, so the Fs must be backed by it (the tests use an OsFs too).
type Pool struct {
	fs          afero.Fs
	workDir     string
	executable  string
	extraArgs   []string
	sem         *semaphore.Weighted
	log         *logrus.Entry
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithExecutable overrides the converter binary name; defaults to "gs".
func WithExecutable(path string) Option {
	return func(p *Pool) { p.executable = path }
}

// WithExtraArgs appends extra arguments to every converter invocation,
// after the fixed PDF/A flags and before the input/output paths.
func WithExtraArgs(args ...string) Option {
	return func(p *Pool) { p.extraArgs = args }
}

// WithLogger sets the Pool's logging sink; defaults to an entry on the
// logrus standard logger.
func WithLogger(log *logrus.Entry) Option {
	return func(p *Pool) { p.log = log }
}

// NewPool constructs a Pool backed by fs, staging files under workDir,
// bounded to concurrency simultaneous converter subprocesses.
func NewPool(fs afero.Fs, workDir string, concurrency int64, opts ...Option) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	p := &Pool{
		fs:         fs,
		workDir:    workDir,
		executable: "gs",
		sem:        semaphore.NewWeighted(concurrency),
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Convert stages pdf on disk, invokes the converter subprocess to
// produce a PDF/A-compliant copy, and returns the converted bytes. It
// blocks until a concurrency slot is free or ctx is cancelled.
func (p *Pool) Convert(ctx context.Context, pdf []byte) ([]byte, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, errors.Wrap(err, "acquire conversion slot")
	}
	defer p.sem.Release(1)

	id := uuid.NewString()
	inPath := filepath.Join(p.workDir, id+".in.pdf")
	outPath := filepath.Join(p.workDir, id+".out.pdf")
	defer p.fs.Remove(inPath)
	defer p.fs.Remove(outPath)

	if err := p.fs.MkdirAll(p.workDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create pdfa work directory")
	}
	if err := afero.WriteFile(p.fs, inPath, pdf, 0o644); err != nil {
		return nil, errors.Wrap(err, "stage input pdf")
	}

	args := append(p.gsArgs(outPath), inPath)
	p.log.Debugf("running pdf/a converter: %s %q", p.executable, args)

	cmd := exec.CommandContext(ctx, p.executable, args...)
	// The converter reads/writes via the real filesystem paths above, not
	// through afero, since exec.Cmd has no notion of a virtual
	// filesystem; the afero.Fs abstraction governs staging and cleanup
	// only, and must point at the same real files for this to work.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "pdf/a conversion failed: %s", stderr.String())
	}

	converted, err := afero.ReadFile(p.fs, outPath)
	if err != nil {
		return nil, errors.Wrap(err, "read converted pdf/a output")
	}
	return converted, nil
}

// gsArgs builds the Ghostscript PDF/A-2b conversion flag set, plus any
// caller-supplied extra arguments, ending in the -o output path.
func (p *Pool) gsArgs(outPath string) []string {
	args := []string{
		"-dPDFA=2",
		"-dBATCH",
		"-dNOPAUSE",
		"-dNOOUTERSAVE",
		"-sColorConversionStrategy=UseDeviceIndependentColor",
		"-sDEVICE=pdfwrite",
		"-dPDFACompatibilityPolicy=1",
	}
	args = append(args, p.extraArgs...)
	return append(args, "-o", outPath)
}

// EnsureWorkDir creates workDir on the real OS filesystem. Convert also
// creates workDir through the Pool's afero.Fs, so neither cmd/printpdf nor
// the tests call this.
func EnsureWorkDir(workDir string) error {
	return os.MkdirAll(workDir, 0o755)
}
