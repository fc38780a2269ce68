package ffmpegsource

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// the command must not outlive us
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: unix.SIGTERM}
}
