package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const pidFilePermissions = 0o600

// pidFileName sits next to the options database so two servers never share
// one data directory.
const pidFileName = "serve.pid"

func pidFilePath(databasePath string) string {
	return filepath.Join(filepath.Dir(databasePath), pidFileName)
}

// writePIDFile records the current process ID at path and holds an exclusive
// flock on it. The returned cleanup releases the lock and removes the file.
func writePIDFile(path string) (cleanup func(), err error) {
	if err := os.MkdirAll(filepath.Dir(path), dataDirPerms); err != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, pidFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("another serve is already running (could not lock %s)", path)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncating PID file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing PID file: %w", err)
	}

	return func() {
		os.Remove(path)
		f.Close()
	}, nil
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in %s: %w", path, err)
	}

	return pid, nil
}

// runningServer returns the PID of a live server, or 0. A PID file left by
// a dead process is removed.
func runningServer(path string) int {
	pid, err := readPIDFile(path)
	if err != nil {
		return 0
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0
	}

	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(path)
		return 0
	}

	return pid
}

// signalReload asks the server holding the PID file to reload its config.
func signalReload(path string) (int, error) {
	if _, err := readPIDFile(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("no running server found (no PID file at %s)", path)
		}

		return 0, err
	}

	pid := runningServer(path)
	if pid == 0 {
		return 0, fmt.Errorf("server is not running (stale PID file removed)")
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return 0, fmt.Errorf("sending SIGHUP to server (PID %d): %w", pid, err)
	}

	return pid, nil
}
