//go:build unix

package speech

import (
	"os"

	"golang.org/x/sys/unix"
)

var errProcessDone = os.ErrProcessDone

func suspend(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGSTOP)
}

func resume(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGCONT)
}
