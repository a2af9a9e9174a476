package shellproc

import (
	"bufio"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// Status reports whether a tracked process is alive.
type Status string

const (
	StatusRunning    Status = "running"
	StatusTerminated Status = "terminated"
)

// outputBuffer accumulates one stream's bytes. It carries its own lock so
// capture goroutines appending to it never contend with the registry lock.
type outputBuffer struct {
	mu sync.Mutex
	b  []byte
}

func (o *outputBuffer) Append(p []byte) {
	o.mu.Lock()
	o.b = append(o.b, p...)
	o.mu.Unlock()
}

func (o *outputBuffer) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return string(o.b)
}

// process is one registry record: the OS handle, the originating command,
// the start timestamp, and the two output buffers mutated by the capture
// goroutines. Liveness is always recomputed from the done channel, never
// cached.
type process struct {
	id      string
	command string
	started time.Time

	cmd   *exec.Cmd
	stdin io.WriteCloser

	stdout outputBuffer
	stderr outputBuffer

	// done is closed by the waiter goroutine once the process has exited
	// and both capture goroutines have drained their pipes. exitCode is
	// valid only after done is closed.
	done     chan struct{}
	exitCode int
}

// alive recomputes liveness from the wait state.
func (p *process) alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// waitDead blocks until the process exits or the timeout elapses.
// Returns true if the process is dead.
func (p *process) waitDead(timeout time.Duration) bool {
	select {
	case <-p.done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// runtimeSeconds returns seconds since spawn.
func (p *process) runtimeSeconds() float64 {
	return time.Since(p.started).Seconds()
}

// signalGroup sends sig to the whole process group.
func (p *process) signalGroup(sig syscall.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-p.cmd.Process.Pid, sig)
}

// startProcess launches command through the shell, detached into its own
// process group, and starts the capture and waiter goroutines.
func startProcess(id, command, workingDir string) (*process, error) {
	cmd := exec.Command("/bin/bash", "-c", command)
	cmd.Dir = workingDir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &process{
		id:      id,
		command: command,
		started: time.Now(),
		cmd:     cmd,
		stdin:   stdin,
		done:    make(chan struct{}),
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go capture(stdoutPipe, &p.stdout, &readers)
	go capture(stderrPipe, &p.stderr, &readers)

	// The waiter reaps the process once both capture goroutines have hit
	// EOF, records the exit code, and closes done. It holds a reference
	// to the record only, never to the registry.
	go func() {
		readers.Wait()
		err := cmd.Wait()
		if cmd.ProcessState != nil {
			p.exitCode = cmd.ProcessState.ExitCode()
		} else if err != nil {
			p.exitCode = -1
		}
		close(p.done)
	}()

	return p, nil
}

// capture appends newly available bytes to buf until the pipe reports
// EOF or a read error. Read errors end the capture silently; they must
// never surface to the control thread or block process exit.
func capture(r io.Reader, buf *outputBuffer, wg *sync.WaitGroup) {
	defer wg.Done()
	br := bufio.NewReader(r)
	chunk := make([]byte, 4096)
	for {
		n, err := br.Read(chunk)
		if n > 0 {
			buf.Append(chunk[:n])
		}
		if err != nil {
			return
		}
	}
}
