// Package paths provides XDG-compliant path resolution for queued.
//
// Resolution order:
// 1. QUEUED_HOME (portable root) → $QUEUED_HOME/{config,state,run}
// 2. XDG env vars → $XDG_*_HOME/queued
// 3. Platform defaults → ~/.config/queued, ~/.local/state/queued
package paths

import (
	"os"
	"path/filepath"
)

const appName = "queued"

func home(sub string, xdgVar string, fallback ...string) string {
	if root := os.Getenv("QUEUED_HOME"); root != "" {
		return filepath.Join(root, sub)
	}
	if dir := os.Getenv(xdgVar); dir != "" {
		return filepath.Join(dir, appName)
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(append(append([]string{homeDir}, fallback...), appName)...)
	}
	return ""
}

// ConfigDir returns the configuration directory, home of the global queued.yml.
func ConfigDir() string {
	return home("config", "XDG_CONFIG_HOME", ".config")
}

// StateDir returns the state directory used for the pid file and logs.
func StateDir() string {
	return home("state", "XDG_STATE_HOME", ".local", "state")
}

// LogDir returns the directory daemon log files are written to.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// RuntimeDir returns the directory for the daemon socket.
// Uses XDG_RUNTIME_DIR when available (Linux), falls back to StateDir (macOS).
func RuntimeDir() string {
	if root := os.Getenv("QUEUED_HOME"); root != "" {
		return filepath.Join(root, "run")
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return StateDir()
}

// SocketPath returns the path to the daemon unix socket.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "queued.sock")
}

// PidFilePath returns the path to the daemon PID file.
func PidFilePath() string {
	return filepath.Join(StateDir(), "queued.pid")
}

// EnsureDirs creates the state, log and runtime directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{StateDir(), LogDir(), RuntimeDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
