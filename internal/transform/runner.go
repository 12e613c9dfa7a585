package transform

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ProgressUpdate reports transform progress as a percentage in [0,100).
type ProgressUpdate struct {
	Percent float64
	Message string
}

// Runner executes ffmpeg plans.
type Runner interface {
	Run(ctx context.Context, plan Plan, durationSeconds float64, progress func(ProgressUpdate)) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the ffmpeg runner.
type Option func(*FFmpeg)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(f *FFmpeg) {
		if exec != nil {
			f.exec = exec
		}
	}
}

// FFmpeg runs plans through the ffmpeg binary with machine-readable progress.
type FFmpeg struct {
	binary  string
	timeout time.Duration
	exec    Executor
}

// NewFFmpeg constructs an ffmpeg runner.
func NewFFmpeg(binary string, timeoutSeconds int, opts ...Option) *FFmpeg {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	runner := &FFmpeg{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run executes one plan. Progress derives from ffmpeg's -progress output
// against the known duration; with no known duration it advances in fixed
// increments and never reports completion early.
func (f *FFmpeg) Run(ctx context.Context, plan Plan, durationSeconds float64, progress func(ProgressUpdate)) error {
	if len(plan.Args) == 0 {
		return errors.New("empty transform plan")
	}

	runCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	args := append([]string{"-progress", "pipe:1"}, plan.Args...)

	var synthetic float64
	err := f.exec.Run(runCtx, f.binary, args, func(line string) {
		if progress == nil {
			return
		}
		elapsed, ok := parseProgressLine(line)
		if !ok {
			return
		}
		var percent float64
		if durationSeconds > 0 {
			percent = elapsed / durationSeconds * 100
		} else {
			synthetic += 5
			percent = synthetic
		}
		if percent < 0 {
			percent = 0
		}
		if percent > 99 {
			percent = 99
		}
		progress(ProgressUpdate{Percent: percent, Message: "Processing video"})
	})
	if err != nil {
		return fmt.Errorf("ffmpeg run: %w", err)
	}
	return nil
}

// parseProgressLine extracts elapsed seconds from ffmpeg -progress key=value
// output. out_time_us and out_time_ms both carry microseconds.
func parseProgressLine(line string) (float64, bool) {
	key, value, found := strings.Cut(strings.TrimSpace(line), "=")
	if !found {
		return 0, false
	}
	switch key {
	case "out_time_us", "out_time_ms":
		micros, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || micros < 0 {
			return 0, false
		}
		return micros / 1e6, true
	case "out_time":
		return parseClock(strings.TrimSpace(value))
	}
	return 0, false
}

func parseClock(value string) (float64, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err1 := strconv.ParseFloat(parts[0], 64)
	minutes, err2 := strconv.ParseFloat(parts[1], 64)
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return hours*3600 + minutes*60 + seconds, true
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var stderrTail strings.Builder

	wg.Add(2)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if onStdout != nil {
				onStdout(scanner.Text())
			}
		}
	}()
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(io.LimitReader(stderr, 64*1024))
		for scanner.Scan() {
			stderrTail.WriteString(scanner.Text())
			stderrTail.WriteByte('\n')
		}
	}()

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		detail := strings.TrimSpace(stderrTail.String())
		if detail != "" {
			return fmt.Errorf("%w: %s", err, lastLines(detail, 5))
		}
		return err
	}
	return nil
}

func lastLines(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}

var _ Runner = (*FFmpeg)(nil)
