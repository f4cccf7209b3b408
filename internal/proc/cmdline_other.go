//go:build !linux

package proc

import "errors"

const cmdlineSupported = false

func readCmdline(pid int) ([]string, error) {
	return nil, errors.ErrUnsupported
}
