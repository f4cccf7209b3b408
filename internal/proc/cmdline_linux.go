//go:build linux

package proc

import (
	"fmt"
	"os"
	"strings"
)

const cmdlineSupported = true

// readCmdline returns the argument vector of pid from /proc. The kernel
// separates arguments with NUL bytes and may leave a trailing NUL.
func readCmdline(pid int) ([]string, error) {
	b, err := os.ReadFile(fmt.Sprintf("/proc/%d/cmdline", pid))
	if err != nil {
		return nil, err
	}
	argv := strings.Split(strings.TrimRight(string(b), "\x00"), "\x00")
	if len(argv) == 1 && argv[0] == "" {
		return nil, nil
	}
	return argv, nil
}
