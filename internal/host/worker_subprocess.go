package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// WorkerConfig configures the subprocess runtime.
type WorkerConfig struct {
	// Bin is the worker binary embedding the inference runtime.
	Bin string
	// Host for the worker's loopback HTTP endpoint. Default 127.0.0.1.
	Host string
	// Optional port range; a free ephemeral port is used when unset.
	PortStart int
	PortEnd   int
	// ModelStoreDir is passed to the worker so it resolves assets from
	// the shared content store.
	ModelStoreDir string
	// ExtraArgs are appended to the worker command line.
	ExtraArgs []string
	// SpawnTimeout bounds the readiness wait. Default 30s.
	SpawnTimeout time.Duration
	// StopGrace is the SIGTERM-to-SIGKILL window. Default 2s.
	StopGrace time.Duration
}

// subprocessRuntime starts one worker process per execution context.
type subprocessRuntime struct {
	cfg    WorkerConfig
	client *http.Client
	log    zerolog.Logger
}

// NewSubprocessRuntime builds the default Runtime: a worker subprocess
// whose death is the memory-reclamation mechanism.
func NewSubprocessRuntime(cfg WorkerConfig, log zerolog.Logger) Runtime {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.SpawnTimeout <= 0 {
		cfg.SpawnTimeout = 30 * time.Second
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = 2 * time.Second
	}
	// Timeout=0 on purpose: all calls use context-based deadlines.
	return &subprocessRuntime{cfg: cfg, client: &http.Client{Timeout: 0}, log: log}
}

func (r *subprocessRuntime) Start(ctx context.Context) (Worker, error) {
	if strings.TrimSpace(r.cfg.Bin) == "" {
		return nil, errors.New("worker binary not configured")
	}
	var port int
	var err error
	if r.cfg.PortStart > 0 && r.cfg.PortEnd >= r.cfg.PortStart {
		port, err = pickPortInRange(r.cfg.Host, r.cfg.PortStart, r.cfg.PortEnd)
	} else {
		port, err = pickFreePort(r.cfg.Host)
	}
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s:%d", r.cfg.Host, port)

	args := []string{
		"--host", r.cfg.Host,
		"--port", strconv.Itoa(port),
	}
	if r.cfg.ModelStoreDir != "" {
		args = append(args, "--model-store", r.cfg.ModelStoreDir)
	}
	args = append(args, r.cfg.ExtraArgs...)

	cmd := exec.Command(r.cfg.Bin, args...)
	// Capture stderr for diagnostics; the tail is included on failure.
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker: %w", err)
	}
	r.log.Info().Int("pid", cmd.Process.Pid).Str("url", baseURL).Msg("worker starting")

	// Early-exit watcher: surface a non-zero exit before readiness.
	waitErrCh := make(chan error, 1)
	go func() { waitErrCh <- cmd.Wait() }()

	w := &subprocessWorker{
		cmd:       cmd,
		baseURL:   baseURL,
		client:    r.client,
		stopGrace: r.cfg.StopGrace,
		waitErrCh: waitErrCh,
	}

	deadline := time.Now().Add(r.cfg.SpawnTimeout)
	for {
		if ctx.Err() != nil {
			_ = w.Kill()
			return nil, ctx.Err()
		}
		if time.Now().After(deadline) {
			_ = w.Kill()
			return nil, fmt.Errorf("worker not ready in time: %s", baseURL)
		}
		select {
		case werr := <-waitErrCh:
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			if werr != nil {
				return nil, fmt.Errorf("worker exited early: %v; stderr tail: %s", werr, tail)
			}
			return nil, fmt.Errorf("worker exited before ready: %s", baseURL)
		default:
		}
		if w.healthy(1 * time.Second) {
			r.log.Info().Int("pid", cmd.Process.Pid).Str("url", baseURL).Msg("worker ready")
			return w, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// subprocessWorker talks to one spawned worker over loopback HTTP.
type subprocessWorker struct {
	cmd       *exec.Cmd
	baseURL   string
	client    *http.Client
	stopGrace time.Duration
	waitErrCh chan error

	mu     sync.Mutex
	killed bool
}

func (w *subprocessWorker) healthy(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"/healthz", nil)
	if err != nil {
		return false
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (w *subprocessWorker) Load(ctx context.Context, remoteID string) error {
	status, body, err := w.post(ctx, "/load", map[string]string{"model": remoteID})
	if err != nil {
		return fmt.Errorf("load %s: %w", remoteID, err)
	}
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnprocessableEntity:
		return ErrFormatUnsupported(fmt.Sprintf("worker cannot execute %s: %s", remoteID, body))
	default:
		return fmt.Errorf("load %s: worker status %d: %s", remoteID, status, body)
	}
}

func (w *subprocessWorker) Classify(ctx context.Context, text string) ([]LabelScore, error) {
	status, body, err := w.post(ctx, "/classify", map[string]string{"text": text})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("classify: worker status %d: %s", status, body)
	}
	var out struct {
		Labels []LabelScore `json:"labels"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return nil, fmt.Errorf("classify: decode worker response: %w", err)
	}
	return out.Labels, nil
}

func (w *subprocessWorker) Unload(ctx context.Context) error {
	status, body, err := w.post(ctx, "/unload", struct{}{})
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("unload: worker status %d: %s", status, body)
	}
	return nil
}

// Kill terminates the worker process: SIGTERM, a short grace, then SIGKILL.
func (w *subprocessWorker) Kill() error {
	w.mu.Lock()
	if w.killed {
		w.mu.Unlock()
		return nil
	}
	w.killed = true
	w.mu.Unlock()

	if w.cmd == nil || w.cmd.Process == nil {
		return nil
	}
	_ = w.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-w.waitErrCh:
		// exited gracefully
	case <-time.After(w.stopGrace):
		_ = w.cmd.Process.Kill()
		<-w.waitErrCh
	}
	return nil
}

func (w *subprocessWorker) post(ctx context.Context, path string, payload any) (int, string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, "", ctx.Err()
		}
		return 0, "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return resp.StatusCode, string(body), nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr := l.Addr().String()
	lastColon := strings.LastIndex(addr, ":")
	if lastColon < 0 {
		return 0, fmt.Errorf("unexpected addr: %s", addr)
	}
	return strconv.Atoi(addr[lastColon+1:])
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, p))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}
