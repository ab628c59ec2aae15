//go:build windows

package supervisor

import (
	"os/exec"
	"strings"
	"syscall"
)

// setArgs hands the joined argument string to CreateProcess untouched
func setArgs(cmd *exec.Cmd, path, args string) {
	if strings.TrimSpace(args) == "" {
		return
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine: syscall.EscapeArg(path) + " " + args,
	}
}
