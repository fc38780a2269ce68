//go:build !linux

package ffmpegsource

import "os/exec"

func setProcAttr(*exec.Cmd) {}
