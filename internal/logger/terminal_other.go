//go:build !linux && !darwin

package logger

// isTerminal always reports false on platforms without termios support,
// disabling color output.
func isTerminal(fd uintptr) bool {
	return false
}
