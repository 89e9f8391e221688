package pyexec

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
)

var (
	ErrNotStarted = errors.New("pyexec: process is not running")
	ErrStarted    = errors.New("pyexec: process already started")
)

type state int

const (
	stateNew state = iota
	stateRunning
	stateExited
)

// Process - интерпретатор Python, запущенный в рабочем каталоге приложения.
// Запускает либо скрипт (python main.py ...), либо модуль (python -m uvicorn ...)
type Process struct {
	mu      sync.Mutex
	dir     string
	venv    string
	script  string
	module  string
	args    []string
	env     []string
	stdout  io.Writer
	stderr  io.Writer
	grace   time.Duration // сколько ждать выхода после SIGTERM
	state   state
	cmd     *exec.Cmd
	exited  chan struct{}
	exitErr error
}

type Option func(*Process)

// WithVenv - каталог виртуального окружения; относительный путь отсчитывается от рабочего каталога
func WithVenv(path string) Option {
	return func(p *Process) {
		p.venv = path
	}
}

// WithScript задает запускаемый файл вместо main.py
func WithScript(name string) Option {
	return func(p *Process) {
		p.script = name
		p.module = ""
	}
}

// WithModule переключает запуск на python -m module
func WithModule(module string) Option {
	return func(p *Process) {
		p.module = module
		p.script = ""
	}
}

func WithArgs(args ...string) Option {
	return func(p *Process) {
		p.args = args
	}
}

// WithEnv добавляет переменные вида KEY=VALUE к окружению процесса
func WithEnv(kv ...string) Option {
	return func(p *Process) {
		p.env = append(p.env, kv...)
	}
}

// WithOutput направляет stdout и stderr процесса в w
func WithOutput(w io.Writer) Option {
	return func(p *Process) {
		p.stdout = w
		p.stderr = w
	}
}

func WithGracePeriod(d time.Duration) Option {
	return func(p *Process) {
		p.grace = d
	}
}

// New проверяет рабочий каталог и готовит процесс к запуску
func New(dir string, opts ...Option) (*Process, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid working directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("working directory is not a directory: %s", abs)
	}

	p := &Process{
		dir:    abs,
		script: "main.py",
		stdout: os.Stdout,
		stderr: os.Stderr,
		grace:  5 * time.Second,
	}
	for _, option := range opts {
		option(p)
	}
	if p.venv != "" && !filepath.IsAbs(p.venv) {
		p.venv = filepath.Join(p.dir, p.venv)
	}

	return p, nil
}

// Python возвращает путь к интерпретатору: из venv, если он задан, иначе python3 из PATH
func (p *Process) Python() (string, error) {
	if p.venv == "" {
		return exec.LookPath("python3")
	}
	python := filepath.Join(p.venv, "bin", "python")
	if runtime.GOOS == "windows" {
		python = filepath.Join(p.venv, "Scripts", "python.exe")
	}
	if _, err := os.Stat(python); err != nil {
		return "", fmt.Errorf("python not found in venv: %w", err)
	}
	return python, nil
}

// Command возвращает аргументы интерпретатора без пути к нему
func (p *Process) Command() []string {
	if p.module != "" {
		return append([]string{"-m", p.module}, p.args...)
	}
	return append([]string{p.script}, p.args...)
}

// Start запускает процесс. Процесс не привязан к контексту: остановка только через Stop
func (p *Process) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateNew {
		return ErrStarted
	}
	if p.module == "" {
		if _, err := os.Stat(filepath.Join(p.dir, p.script)); err != nil {
			return fmt.Errorf("script not found: %w", err)
		}
	}
	python, err := p.Python()
	if err != nil {
		return err
	}

	cmd := exec.Command(python, p.Command()...)
	cmd.Dir = p.dir
	cmd.Stdout = p.stdout
	cmd.Stderr = p.stderr
	cmd.Env = append(os.Environ(), p.env...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start python process: %w", err)
	}

	p.cmd = cmd
	p.state = stateRunning
	p.exited = make(chan struct{})
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.exitErr = err
		p.state = stateExited
		p.mu.Unlock()
		close(p.exited)
	}()

	return nil
}

// Exited закрывается после завершения процесса
func (p *Process) Exited() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.exited == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.exited
}

func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state == stateRunning
}

func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != stateRunning {
		return -1
	}
	return p.cmd.Process.Pid
}

// Wait ждет завершения процесса или отмены ctx
func (p *Process) Wait(ctx context.Context) error {
	p.mu.Lock()
	if p.state == stateNew {
		p.mu.Unlock()
		return ErrNotStarted
	}
	exited := p.exited
	p.mu.Unlock()

	select {
	case <-exited:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.exitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop посылает SIGTERM и через grace-период SIGKILL
func (p *Process) Stop() error {
	p.mu.Lock()
	if p.state != stateRunning {
		p.mu.Unlock()
		return ErrNotStarted
	}
	proc := p.cmd.Process
	exited := p.exited
	grace := p.grace
	p.mu.Unlock()

	if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}
	select {
	case <-exited:
		return nil
	case <-time.After(grace):
	}

	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to kill process: %w", err)
	}
	<-exited
	return nil
}
