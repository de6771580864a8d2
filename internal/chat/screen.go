package chat

import (
	"os"
	"os/exec"
	"runtime"

	"golang.org/x/term"
)

// ClearCommand returns the command that clears a terminal on goos.
func ClearCommand(goos string) (string, []string) {
	if goos == "windows" {
		return "cmd", []string{"/c", "cls"}
	}
	return "clear", nil
}

// ScreenClearer returns a clear function bound to f. It does nothing when f
// is not a terminal, so piped output stays free of escape codes.
func ScreenClearer(f *os.File) func() error {
	return func() error {
		if f == nil || !term.IsTerminal(int(f.Fd())) {
			return nil
		}
		name, args := ClearCommand(runtime.GOOS)
		cmd := exec.Command(name, args...)
		cmd.Stdout = f
		cmd.Stderr = f
		return cmd.Run()
	}
}
