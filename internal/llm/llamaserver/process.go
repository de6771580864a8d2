package llamaserver

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"glmchat/internal/llm"
)

// server is a llama-server endpoint, optionally owned by this process.
type server struct {
	baseURL string

	// Set only for spawned servers.
	cmd    *exec.Cmd
	exited chan struct{}
	once   sync.Once
}

// spawn starts llama-server for weights (plus an optional LoRA) on a free
// loopback port and waits until it answers.
func (b *Backend) spawn(ctx context.Context, weights, lora string) (*server, error) {
	bin := b.cfg.Bin
	if bin == "" {
		bin = discoverBin()
	}
	if bin == "" {
		return nil, llm.ErrDependencyUnavailable("llama-server not found: set llama_bin or install llama.cpp")
	}
	if fi, err := os.Stat(bin); err != nil || fi.IsDir() {
		return nil, llm.ErrDependencyUnavailable(fmt.Sprintf("llama-server not found or not a file: %s", bin))
	}
	port, err := pickFreePort(b.cfg.Host)
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(b.cfg.Host, strconv.Itoa(port)))

	cmd := exec.Command(bin, b.serverArgs(weights, lora, port)...)
	// Relative assets next to the weights resolve from their directory.
	cmd.Dir = filepath.Dir(weights)
	// Tail is reported if the server dies before it is ready. The server
	// logs every request, so only the last bytes are kept.
	stderr := &tailBuffer{max: stderrTail}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	log := b.log.With().Int("pid", cmd.Process.Pid).Str("url", baseURL).Logger()
	log.Info().Str("weights", weights).Str("lora", lora).Msg("llama-server started")

	srv := &server{baseURL: baseURL, cmd: cmd, exited: make(chan struct{})}
	waitErrCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		close(srv.exited)
		waitErrCh <- err
	}()

	deadline := time.Now().Add(b.cfg.ReadyTimeout)
	for {
		if time.Now().After(deadline) {
			srv.stop()
			log.Warn().Msg("llama-server not ready in time")
			return nil, fmt.Errorf("llama-server not ready in time: %s", baseURL)
		}
		select {
		case werr := <-waitErrCh:
			tail := stderr.String()
			if werr == nil {
				return nil, fmt.Errorf("llama-server exited before ready: %s", baseURL)
			}
			return nil, fmt.Errorf("llama-server exited early: %v; stderr tail: %s", werr, tail)
		case <-ctx.Done():
			srv.stop()
			return nil, ctx.Err()
		default:
		}

		hctx, cancel := context.WithTimeout(ctx, time.Second)
		err := b.checkHealth(hctx, baseURL)
		cancel()
		if err == nil {
			log.Info().Msg("llama-server ready")
			return srv, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (b *Backend) serverArgs(weights, lora string, port int) []string {
	args := []string{
		"-m", weights,
		"--host", b.cfg.Host,
		"--port", strconv.Itoa(port),
	}
	if lora != "" {
		args = append(args, "--lora", lora)
	}
	if b.cfg.CtxSize > 0 {
		args = append(args, "-c", strconv.Itoa(b.cfg.CtxSize))
	}
	if b.cfg.GPULayers > 0 {
		args = append(args, "-ngl", strconv.Itoa(b.cfg.GPULayers))
	}
	if b.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(b.cfg.Threads))
	}
	return append(args, b.cfg.ExtraArgs...)
}

// stop terminates a spawned server: SIGTERM first, kill after two seconds.
// It is a no-op for servers this process does not own.
func (s *server) stop() {
	if s == nil || s.cmd == nil || s.cmd.Process == nil {
		return
	}
	s.once.Do(func() {
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-s.exited:
		case <-time.After(2 * time.Second):
			_ = s.cmd.Process.Kill()
			<-s.exited
		}
	})
}

const stderrTail = 4096

// tailBuffer is an io.Writer that retains the last max bytes written.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// discoverBin locates a llama-server binary on PATH or in common install locations.
func discoverBin() string {
	if lp, err := exec.LookPath("llama-server"); err == nil {
		return lp
	}
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "llama.cpp", "build", "bin", "llama-server"),
		filepath.Join(home, ".local", "bin", "llama-server"),
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}
