package devtools

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"sync"
	"time"
)

// executableCandidates lists well-known Chrome/Chromium install paths to
// probe when Config.ChromeExecutable is empty, in the style of
// https://github.com/karma-runner/karma-chrome-launcher.
var executableCandidates = []string{
	"google-chrome-stable",
	"google-chrome",
	"chromium-browser",
	"chromium",
	"chrome",
}

func discoverExecutable() (string, error) {
	for _, name := range executableCandidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", wrapError(KindSpawnFailed, exec.ErrNotFound, "locate a Chrome/Chromium executable")
}

// Transport owns one headless browser subprocess and speaks the CDP pipe
// protocol with it: outbound JSON messages terminated by a single 0x00
// byte written to the pipe the browser reads on fd 3, inbound messages
// read the same way from the pipe it writes on fd 4. Framing is
// null-delimited, not newline-delimited, since
// CDP messages may contain embedded newlines.
type Transport struct {
	cmd *exec.Cmd
	in  *os.File
	out *os.File

	inbox chan []byte
	done  chan struct{}

	sendMu    sync.Mutex
	closeOnce sync.Once
	waitErr   error
}

// spawnTransport starts the browser subprocess with a pipe-based remote
// debugging transport (ExtraFiles at fd 3/4, matching
// --remote-debugging-pipe's convention) and begins reading frames from its
// fd 4 pipe in the background.
func spawnTransport(ctx context.Context, cfg Config, userDataDir string, log Logger) (*Transport, error) {
	exePath := cfg.ChromeExecutable
	if exePath == "" {
		var err error
		exePath, err = discoverExecutable()
		if err != nil {
			return nil, err
		}
	}
	log.Infof("browser executable: %s", exePath)

	args := launchArgs(cfg, userDataDir)
	log.Infof("browser command-line args: %q", args)
	cmd := exec.CommandContext(ctx, exePath, args...)

	if err := os.MkdirAll(userDataDir, 0o755); err != nil {
		return nil, wrapError(KindSpawnFailed, err, "create user data directory %s", userDataDir)
	}

	inboundReader, inboundWriter, err := os.Pipe()
	if err != nil {
		return nil, wrapError(KindSpawnFailed, err, "create browser input pipe")
	}
	outboundReader, outboundWriter, err := os.Pipe()
	if err != nil {
		inboundReader.Close()
		inboundWriter.Close()
		return nil, wrapError(KindSpawnFailed, err, "create browser output pipe")
	}
	// The browser reads CDP commands on fd 3 and writes responses/events
	// on fd 4, matching os/exec's ExtraFiles numbering (stdin=0, stdout=1,
	// stderr=2, then ExtraFiles starting at 3).
	cmd.ExtraFiles = []*os.File{inboundReader, outboundWriter}

	if cfg.DiscardStderr {
		devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
		if err == nil {
			cmd.Stderr = devNull
		}
	} else {
		cmd.Stderr = &logWriter{log: log}
	}

	if err := cmd.Start(); err != nil {
		inboundReader.Close()
		inboundWriter.Close()
		outboundReader.Close()
		outboundWriter.Close()
		return nil, wrapError(KindSpawnFailed, err, "start browser process")
	}
	log.Infof("browser process started: pid %d", cmd.Process.Pid)

	// The parent process doesn't use the ends of the pipes it handed to
	// the child.
	inboundReader.Close()
	outboundWriter.Close()

	t := &Transport{
		cmd:   cmd,
		in:    inboundWriter,
		out:   outboundReader,
		inbox: make(chan []byte, 64),
		done:  make(chan struct{}),
	}
	go t.readLoop()
	go t.waitLoop()
	return t, nil
}

// logWriter adapts a Logger into an io.Writer, for the browser's STDERR.
type logWriter struct{ log Logger }

func (w *logWriter) Write(b []byte) (int, error) {
	w.log.Debugf("browser stderr: %s", bytes.TrimRight(b, "\n"))
	return len(b), nil
}

func (t *Transport) readLoop() {
	scanner := bufio.NewScanner(t.out)
	scanner.Buffer(make([]byte, 0, 64*1024), 128*1024*1024)
	scanner.Split(scanNullFrames)
	for scanner.Scan() {
		frame := append([]byte(nil), scanner.Bytes()...)
		select {
		case t.inbox <- frame:
		case <-t.done:
			return
		}
	}
	close(t.inbox)
}

// scanNullFrames is bufio.ScanLines with 0x00 instead of '\n' as the
// separator, since CDP messages may legally contain embedded newlines.
func scanNullFrames(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, 0); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func (t *Transport) waitLoop() {
	t.waitErr = t.cmd.Wait()
	close(t.done)
}

// send writes one frame to the browser's fd 3 pipe, serialized with every
// other sender: the browser expects concatenated frames, not interleaved
// bytes.
func (t *Transport) send(frame []byte) error {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	if _, err := t.in.Write(frame); err != nil {
		return wrapError(KindTransportClosed, err, "write frame")
	}
	if _, err := t.in.Write([]byte{0}); err != nil {
		return wrapError(KindTransportClosed, err, "write frame terminator")
	}
	return nil
}

// recv yields the next complete frame, or ok=false once the browser's
// fd 4 pipe has reached end-of-stream.
func (t *Transport) recv() (frame []byte, ok bool) {
	frame, ok = <-t.inbox
	return frame, ok
}

// closed is signaled once the browser process has exited (cmd.Wait has
// returned); frames still buffered in the pipe may not have been read yet.
func (t *Transport) closed() <-chan struct{} { return t.done }

// stop closes the input pipe (signaling the browser to exit on most
// platforms) and waits for the process; on timeout it sends SIGKILL.
func (t *Transport) stop(timeout time.Duration) error {
	t.closeOnce.Do(func() {
		t.in.Close()
		select {
		case <-t.done:
		case <-time.After(timeout):
			if t.cmd.Process != nil {
				_ = t.cmd.Process.Kill()
			}
			<-t.done
		}
		t.out.Close()
	})
	return t.waitErr
}
