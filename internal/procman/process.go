package procman

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"Airlock/pkg/helpers"
	"Airlock/pkg/logger"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/process"
	"golang.org/x/sys/unix"
)

// DefaultStopGrace is how long Stop waits after SIGTERM before sending SIGKILL.
const DefaultStopGrace = time.Second

var ids = helpers.IDGenerator()

// Options tune how a process is started.
type Options struct {
	// Name labels log lines and the scratch directory. Defaults to the command's base name.
	Name string
	// Stdin is fed to the process. Nil means /dev/null.
	Stdin io.Reader
	// StopGrace overrides DefaultStopGrace when positive.
	StopGrace time.Duration
}

// Process is one external tool invocation. It runs in its own process group,
// inside a scratch directory that only it uses, with stdout and stderr
// captured to files in that directory.
type Process struct {
	ID      uuid.UUID
	Command string
	Args    []string

	mu      sync.Mutex
	name    string
	dir     string
	grace   time.Duration
	cmd     *exec.Cmd
	exit    *exitWatch
	stdout  *stream
	stderr  *stream
	stopped bool
	cleaned bool
}

type exitWatch struct {
	done chan struct{}
	code int
	err  error
}

// watch must not reference the Process, otherwise the finalizer never fires.
func watch(cmd *exec.Cmd) *exitWatch {
	w := &exitWatch{done: make(chan struct{})}
	go func() {
		w.err = cmd.Wait()
		w.code = -1
		if cmd.ProcessState != nil {
			w.code = cmd.ProcessState.ExitCode()
		}
		close(w.done)
	}()
	return w
}

func (w *exitWatch) status() (int, bool) {
	select {
	case <-w.done:
		return w.code, true
	default:
		return 0, false
	}
}

// Start spawns command immediately.
func Start(command string, args []string, opts Options) (*Process, error) {
	bin := helpers.FindBinary(command)
	if bin.Error != nil {
		return nil, &SpawnError{Command: command, Missing: true, Err: bin.Error}
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(command)
	}
	grace := opts.StopGrace
	if grace <= 0 {
		grace = DefaultStopGrace
	}

	dir, err := os.MkdirTemp("", "airlock-"+helpers.SafeDirName(name, "proc")+"-")
	if err != nil {
		return nil, &SpawnError{Command: command, Err: fmt.Errorf("create scratch dir: %w", err)}
	}

	stdout, err := openStream(filepath.Join(dir, "stdout.txt"))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, &SpawnError{Command: command, Err: err}
	}
	stderr, err := openStream(filepath.Join(dir, "stderr.txt"))
	if err != nil {
		_ = stdout.close()
		_ = os.RemoveAll(dir)
		return nil, &SpawnError{Command: command, Err: err}
	}

	cmd := exec.Command(bin.PathInPATH, args...)
	cmd.Dir = dir
	cmd.Stdin = opts.Stdin
	cmd.Stdout = stdout.w
	cmd.Stderr = stderr.w
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: 0}

	if err := cmd.Start(); err != nil {
		_ = stdout.close()
		_ = stderr.close()
		_ = os.RemoveAll(dir)
		return nil, &SpawnError{Command: command, Err: err}
	}

	p := &Process{
		ID:      ids.Generate(),
		Command: command,
		Args:    args,
		name:    name,
		dir:     dir,
		grace:   grace,
		cmd:     cmd,
		exit:    watch(cmd),
		stdout:  stdout,
		stderr:  stderr,
	}
	runtime.SetFinalizer(p, finalize)
	logger.DebugIfEnabled("[%s] started pid %d: %s %v (dir %s)", p.name, cmd.Process.Pid, command, args, dir)
	return p, nil
}

func finalize(p *Process) {
	p.mu.Lock()
	cleaned := p.cleaned
	p.mu.Unlock()
	if cleaned {
		return
	}
	logger.Warnf("Process %s (%s) was not cleaned up by its owner, stopping it from the finalizer", p.name, p.ID)
	_ = p.Cleanup()
}

// Name is the label given at start.
func (p *Process) Name() string { return p.name }

// Dir is the scratch directory the process runs in.
func (p *Process) Dir() string { return p.dir }

// Pid of the group leader.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

func (p *Process) String() string {
	return fmt.Sprintf("%s[%d]", p.name, p.cmd.Process.Pid)
}

// Update pulls any output written since the previous call into the line
// buffers. It never blocks waiting for output.
func (p *Process) Update() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cleaned {
		return ErrCleaned
	}
	return p.drain()
}

func (p *Process) drain() error {
	// Exit is sampled first so that everything the process wrote before
	// exiting is already in the files when final is true.
	_, exited := p.exit.status()
	if err := p.stdout.drain(exited); err != nil {
		return fmt.Errorf("%s stdout: %w", p.name, err)
	}
	if err := p.stderr.drain(exited); err != nil {
		return fmt.Errorf("%s stderr: %w", p.name, err)
	}
	return nil
}

// Stdout returns the complete stdout lines gathered by Update since the last call.
func (p *Process) Stdout() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cleaned {
		return nil
	}
	return p.stdout.take()
}

// Stderr returns the complete stderr lines gathered by Update since the last call.
func (p *Process) Stderr() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cleaned {
		return nil
	}
	return p.stderr.take()
}

// Exit reports the exit code once the process has terminated.
func (p *Process) Exit() (int, bool) {
	return p.exit.status()
}

// Stop terminates the process group: SIGTERM, a grace period, then SIGKILL.
// Stopping an exited process only reports its exit code.
func (p *Process) Stop() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cleaned {
		return 0, ErrCleaned
	}
	return p.stop()
}

func (p *Process) stop() (int, error) {
	if code, exited := p.exit.status(); exited {
		p.stopped = true
		return code, p.drain()
	}

	pid := p.cmd.Process.Pid
	children := descendants(pid)

	p.signal(unix.SIGTERM)
	select {
	case <-p.exit.done:
	case <-time.After(p.grace):
		logger.DebugIfEnabled("[%s] still alive %s after SIGTERM, sending SIGKILL", p.name, p.grace)
		p.signal(unix.SIGKILL)
		select {
		case <-p.exit.done:
		case <-time.After(5 * time.Second):
			return -1, fmt.Errorf("%s: pid %d did not exit after SIGKILL", p.name, pid)
		}
	}
	reapStragglers(p.name, children)

	p.stopped = true
	return p.exit.code, p.drain()
}

func (p *Process) signal(sig syscall.Signal) {
	pid := p.cmd.Process.Pid
	if err := unix.Kill(-pid, sig); err != nil && !errors.Is(err, unix.ESRCH) {
		logger.Warnf("[%s] signal %v to group %d failed: %v", p.name, sig, pid, err)
		_ = p.cmd.Process.Signal(sig)
	}
}

// Stopped reports whether Stop was called by the owner.
func (p *Process) Stopped() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopped
}

// Cleanup stops the process if needed, closes its files and removes the
// scratch directory. Every later call on p fails with ErrCleaned.
func (p *Process) Cleanup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cleaned {
		return ErrCleaned
	}

	var errs []error
	if _, exited := p.exit.status(); !exited {
		if _, err := p.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, p.stdout.close(), p.stderr.close())
	if err := os.RemoveAll(p.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove %s: %w", p.dir, err))
	}
	p.cleaned = true
	runtime.SetFinalizer(p, nil)
	return errors.Join(errs...)
}

// Wait polls until the process exits on its own. When ctx ends first the
// process is stopped and ctx.Err is returned.
func (p *Process) Wait(ctx context.Context, poll time.Duration) (int, error) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if err := p.Update(); err != nil {
			return -1, err
		}
		if code, exited := p.Exit(); exited {
			return code, p.Update()
		}
		select {
		case <-ctx.Done():
			_, _ = p.Stop()
			return -1, ctx.Err()
		case <-p.exit.done:
		case <-ticker.C:
		}
	}
}

// descendants walks the process tree under pid. Tools that daemonise helpers
// can leave the group, so they are tracked by parentage as well.
func descendants(pid int) []*process.Process {
	root, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}
	var found []*process.Process
	queue := []*process.Process{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		kids, err := current.Children()
		if err != nil {
			continue
		}
		found = append(found, kids...)
		queue = append(queue, kids...)
	}
	return found
}

func reapStragglers(name string, procs []*process.Process) {
	for _, proc := range procs {
		if running, err := proc.IsRunning(); err != nil || !running {
			continue
		}
		logger.Warnf("[%s] descendant pid %d survived group termination, killing it", name, proc.Pid)
		if err := proc.Kill(); err != nil {
			logger.Warnf("[%s] failed to kill pid %d: %v", name, proc.Pid, err)
		}
	}
}
