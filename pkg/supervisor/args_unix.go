//go:build !windows

package supervisor

import (
	"os/exec"
	"strings"
)

// setArgs splits the joined argument string on whitespace
func setArgs(cmd *exec.Cmd, path, args string) {
	cmd.Args = append([]string{path}, strings.Fields(args)...)
}
