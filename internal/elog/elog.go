// Package elog implements the ambient CLI logging and progress-reporting
// layer shared by raw2bvp and bvp2raw, adapted from the teacher's
// terminal logger: logrus for leveled output, fatih/color for
// highlighting, and mpb progress bars for the pipeline's stage-2 packet
// count.
package elog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

// Logger is the leveled-logging surface every command depends on.
type Logger interface {
	Debugf(format string, x ...interface{})
	Errorf(format string, x ...interface{})
	Infof(format string, x ...interface{})
	Printf(format string, x ...interface{})
	Warnf(format string, x ...interface{})
	IsInfoEnabled() bool
	IsDebugEnabled() bool
}

// Progress drives a single progress bar or spinner; it also satisfies
// pipeline.Reporter via Increment.
type Progress interface {
	Increment()
	Finish(success bool)
}

// ProgressReporter constructs Progress trackers for long operations.
type ProgressReporter interface {
	NewProgress(label string, total int64) Progress
}

// View bundles logging and progress reporting, the interface commands
// take a dependency on rather than the concrete CLI type.
type View interface {
	Logger
	ProgressReporter
}

// CLI is the terminal-backed View implementation. RunID tags every
// formatted line so concurrent runs (or log aggregation across runs) can
// be told apart, the way the teacher's CLI tagged provisioning runs with
// a generated uuid.
type CLI struct {
	DisableColors bool
	DisableTTY    bool
	IsDebug       bool
	IsVerbose     bool
	RunID         string

	lock               sync.Mutex
	isTrackingProgress bool
	bars               map[*mpb.Bar]bool
	buffer             *bytes.Buffer
	progressContainer  *mpb.Progress
	stdout             io.Writer
}

// New constructs a CLI view, generating a fresh run-correlation id. stdout
// is wrapped with go-colorable so ANSI codes degrade gracefully on
// terminals (notably Windows consoles) that don't support them natively,
// and DisableTTY auto-detects via go-isatty when the caller hasn't forced
// it, the way the teacher's CLI picks a non-interactive mode on a pipe.
func New(isDebug, isVerbose, disableColors, disableTTY bool) *CLI {
	if !disableTTY {
		fd := os.Stdout.Fd()
		if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
			disableTTY = true
		}
	}
	stdout := colorable.NewColorableStdout()
	logrus.SetOutput(stdout)
	return &CLI{
		IsDebug:       isDebug,
		IsVerbose:     isVerbose,
		DisableColors: disableColors,
		DisableTTY:    disableTTY,
		RunID:         uuid.New().String(),
		stdout:        stdout,
	}
}

// Debugf wraps logrus.Tracef, gated by IsDebug.
func (log *CLI) Debugf(format string, x ...interface{}) {
	if log.IsDebug {
		logrus.Tracef(format, x...)
	}
}

// Errorf wraps logrus.Errorf.
func (log *CLI) Errorf(format string, x ...interface{}) {
	logrus.Errorf(format, x...)
}

// Infof wraps logrus.Debugf, gated by IsVerbose.
func (log *CLI) Infof(format string, x ...interface{}) {
	if log.IsVerbose {
		logrus.Debugf(format, x...)
	}
}

// Printf wraps logrus.Printf.
func (log *CLI) Printf(format string, x ...interface{}) {
	logrus.Printf(format, x...)
}

// Warnf wraps logrus.Warnf.
func (log *CLI) Warnf(format string, x ...interface{}) {
	logrus.Warnf(format, x...)
}

// IsInfoEnabled reports whether InfoLevel logging is enabled.
func (log *CLI) IsInfoEnabled() bool { return logrus.IsLevelEnabled(logrus.InfoLevel) }

// IsDebugEnabled reports whether DebugLevel logging is enabled.
func (log *CLI) IsDebugEnabled() bool { return logrus.IsLevelEnabled(logrus.DebugLevel) }

// NewProgress creates a bar (or, with no TTY, a no-op tracker) tracking
// total work units, used by pipeline.ConvertParallel/ConvertSequential
// for per-packet progress.
func (log *CLI) NewProgress(label string, total int64) Progress {
	if log.DisableTTY {
		return &nilProgress{}
	}

	log.lock.Lock()
	defer log.lock.Unlock()

	if !log.isTrackingProgress {
		log.isTrackingProgress = true
		log.buffer = new(bytes.Buffer)
		logrus.SetOutput(log.buffer)
		log.progressContainer = mpb.New(mpb.WithWidth(80))
		log.bars = make(map[*mpb.Bar]bool)
	}

	bar := log.progressContainer.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DidentRight}),
			decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO, decor.WC{W: 4}), "done"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
	log.bars[bar] = true

	return &pb{log: log, bar: bar, total: total, interval: 100 * time.Millisecond, nextUpdate: time.Now()}
}

type nilProgress struct{}

func (*nilProgress) Increment()       {}
func (*nilProgress) Finish(bool) {}

type pb struct {
	log    *CLI
	bar    *mpb.Bar
	closed bool
	total  int64
	count  int64

	buffered   int64
	interval   time.Duration
	nextUpdate time.Time
}

// Increment advances the bar by one unit, batching redraws per interval
// the way the teacher's byte-oriented progress writer did.
func (p *pb) Increment() {
	p.buffered++
	p.count++
	if !time.Now().Before(p.nextUpdate) {
		p.flush()
	}
}

func (p *pb) flush() {
	p.nextUpdate = time.Now().Add(p.interval)
	p.bar.IncrInt64(p.buffered)
	p.buffered = 0
}

// Finish closes the bar and, once every tracked bar has finished,
// restores normal logrus output.
func (p *pb) Finish(success bool) {
	if p.closed {
		return
	}
	p.flush()
	p.closed = true
	if p.count != p.total || p.total == 0 || !success {
		p.bar.Abort(false)
	}

	p.log.lock.Lock()
	defer p.log.lock.Unlock()
	delete(p.log.bars, p.bar)

	if len(p.log.bars) == 0 {
		p.log.bars = nil
		p.log.isTrackingProgress = false
		p.log.progressContainer.Wait()
		p.log.progressContainer = nil
		out := p.log.stdout
		if out == nil {
			out = os.Stdout
		}
		logrus.SetOutput(out)
		_, _ = p.log.buffer.WriteTo(out)
		p.log.buffer = nil
	}
}

// multiWriteSeeker tees writes (and coupled seeks) across several
// destinations at once, adapted from the teacher's MultiWriteSeeker —
// used by the CLI's --debug path to mirror the archive bytes into an
// in-memory verification buffer while they stream to disk.
type multiWriteSeeker struct {
	w []io.WriteSeeker
}

// MultiWriteSeeker returns an io.WriteSeeker that fans writes out to
// every seeker given, failing on the first short write or seek mismatch.
func MultiWriteSeeker(writeseekers ...io.WriteSeeker) io.WriteSeeker {
	return &multiWriteSeeker{w: writeseekers}
}

func (m *multiWriteSeeker) Write(p []byte) (int, error) {
	for _, w := range m.w {
		n, err := w.Write(p)
		if err != nil {
			return n, err
		}
		if n != len(p) {
			return n, io.ErrShortWrite
		}
	}
	return len(p), nil
}

func (m *multiWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	abs, err := m.w[0].Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	for _, w := range m.w[1:] {
		n, err := w.Seek(offset, whence)
		if err != nil {
			return 0, err
		}
		if n != abs {
			return 0, fmt.Errorf("multiWriteSeeker: seek position mismatch across writers")
		}
	}
	return abs, nil
}

// Format implements logrus.Formatter, coloring by level the way the
// teacher's CLI formatter does, and tagging every line with the run id.
func (log *CLI) Format(entry *logrus.Entry) ([]byte, error) {
	faint := color.New(color.Faint).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	blue := color.New(color.FgBlue).SprintFunc()

	x := entry.Message
	if log.RunID != "" {
		x = fmt.Sprintf("[%s] %s", log.RunID[:8], x)
	}
	if !log.DisableColors {
		switch entry.Level {
		case logrus.TraceLevel:
			x = fmt.Sprintf("%s\n", faint(x))
		case logrus.DebugLevel:
			x = fmt.Sprintf("%s\n", blue(x))
		case logrus.InfoLevel:
			x = fmt.Sprintf("%s\n", x)
		case logrus.WarnLevel:
			x = fmt.Sprintf("%s\n", yellow(x))
		case logrus.ErrorLevel:
			x = fmt.Sprintf("%s\n", red(x))
		default:
		}
	} else {
		x = fmt.Sprintf("%s\n", x)
	}

	return []byte(x), nil
}
