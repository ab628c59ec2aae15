//go:build !windows

package main

import (
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// editorCommand picks $EDITOR, $VISUAL or vi, through sudo when the file
// is not writable by the current user
func editorCommand(configPath string) []string {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		editor = "vi"
	}

	if unix.Access(configPath, unix.W_OK) != nil && os.Geteuid() != 0 {
		return []string{"sudo", editor, configPath}
	}
	return []string{editor, configPath}
}

func openEditor(configPath string) error {
	argv := editorCommand(configPath)
	fmt.Printf("Opening %s with %s...\n", configPath, argv[0])

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	return cmd.Run()
}
