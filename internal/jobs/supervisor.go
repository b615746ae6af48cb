package jobs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"kollektor/internal/models"
)

// Outcome is what the supervisor reports back when the collector
// process is gone. Err carries capture-side failures (broken pipe,
// log append failure), not the process exit status.
type Outcome struct {
	ExitCode int
	TimedOut bool
	Err      error
}

// Runner spawns external collector processes. The controller only
// knows this interface; tests substitute a scripted one.
type Runner interface {
	Spawn(jobID int64, argv []string, timeout time.Duration) (Handle, error)
}

// Handle owns one spawned process. Capture blocks on the worker
// goroutine until the process exits; Terminate may be called from any
// goroutine.
type Handle interface {
	Capture(ctx context.Context) Outcome
	Terminate()
}

// Supervisor starts collector processes in their own process group,
// captures combined stdout/stderr line by line and persists each line
// before reading the next one.
type Supervisor struct {
	logs    LogStore
	workdir string
	grace   time.Duration
}

func NewSupervisor(logs LogStore, workdir string, grace time.Duration) *Supervisor {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Supervisor{logs: logs, workdir: workdir, grace: grace}
}

// Spawn starts the collector. A launch failure (missing binary,
// permission error) comes back as *SpawnError. The timeout, when
// positive, hard-kills the process group once exceeded.
func (s *Supervisor) Spawn(jobID int64, argv []string, timeout time.Duration) (Handle, error) {
	if len(argv) == 0 {
		return nil, &SpawnError{Err: fmt.Errorf("empty command")}
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = s.workdir
	// Own process group so cancel reaches children too (the collectors
	// spawn browser subprocesses).
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Err: err}
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, &SpawnError{Err: err}
	}
	// Parent keeps only the read end.
	pw.Close()

	p := &process{
		jobID: jobID,
		cmd:   cmd,
		out:   pr,
		logs:  s.logs,
		grace: s.grace,
	}
	if timeout > 0 {
		p.timer = time.AfterFunc(timeout, func() {
			p.timedOut.Store(true)
			p.kill()
		})
	}
	return p, nil
}

type process struct {
	jobID int64
	cmd   *exec.Cmd
	out   *os.File
	logs  LogStore
	grace time.Duration

	timer    *time.Timer
	timedOut atomic.Bool

	mu         sync.Mutex
	graceTimer *time.Timer
}

// Capture reads the combined output line by line, classifies and
// persists each line, then waits for the exit status. Write-then-
// continue: a crash never loses lines the process already emitted, and
// a failed append aborts the job rather than silently dropping output.
func (p *process) Capture(ctx context.Context) Outcome {
	defer p.out.Close()

	var captureErr error
	scanner := bufio.NewScanner(p.out)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		if err := p.logs.Append(ctx, p.jobID, ClassifyLevel(line), line); err != nil {
			captureErr = fmt.Errorf("persisting log line: %w", err)
			p.kill()
			break
		}
	}
	if err := scanner.Err(); err != nil && captureErr == nil {
		captureErr = fmt.Errorf("reading collector output: %w", err)
		p.kill()
	}
	// Keep draining so the child is never blocked on a full pipe.
	io.Copy(io.Discard, p.out)

	p.cmd.Wait()
	if p.timer != nil {
		p.timer.Stop()
	}
	// The process is gone; a pending kill escalation must not fire at a
	// possibly recycled process group.
	p.mu.Lock()
	if p.graceTimer != nil {
		p.graceTimer.Stop()
	}
	p.mu.Unlock()

	return Outcome{
		ExitCode: p.cmd.ProcessState.ExitCode(),
		TimedOut: p.timedOut.Load(),
		Err:      captureErr,
	}
}

// Terminate asks the process group to stop and escalates to SIGKILL
// after the grace window, giving the collector time to flush partial
// checkpoint writes.
func (p *process) Terminate() {
	syscall.Kill(-p.cmd.Process.Pid, syscall.SIGTERM)
	p.mu.Lock()
	if p.graceTimer == nil {
		p.graceTimer = time.AfterFunc(p.grace, p.kill)
	}
	p.mu.Unlock()
}

func (p *process) kill() {
	syscall.Kill(-p.cmd.Process.Pid, syscall.SIGKILL)
}

// ClassifyLevel derives a display severity from a captured line by
// case-insensitive substring match, highest priority first. Best-effort
// readability aid only: it never influences the job status, so a stray
// "error" in otherwise successful output cannot fail a job.
func ClassifyLevel(line string) string {
	upper := strings.ToUpper(line)
	switch {
	case strings.Contains(upper, "ERROR"):
		return models.LevelError
	case strings.Contains(upper, "WARNING"), strings.Contains(upper, "WARN"):
		return models.LevelWarning
	case strings.Contains(upper, "SUCCESS"):
		return models.LevelSuccess
	case strings.Contains(upper, "DEBUG"):
		return models.LevelDebug
	default:
		return models.LevelInfo
	}
}
