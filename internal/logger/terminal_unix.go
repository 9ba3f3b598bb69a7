//go:build !windows && !linux

package logger

import "golang.org/x/sys/unix"

// isTerminal reports whether fd refers to a terminal. BSD-derived systems
// (including macOS) use TIOCGETA to fetch terminal attributes.
func isTerminal(fd uintptr) bool {
	_, err := unix.IoctlGetTermios(int(fd), unix.TIOCGETA)
	return err == nil
}
