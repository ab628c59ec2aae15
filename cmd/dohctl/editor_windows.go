//go:build windows

package main

import (
	"fmt"
	"os"
	"os/exec"
)

func editorCommand(configPath string) []string {
	if editor := os.Getenv("EDITOR"); editor != "" {
		return []string{editor, configPath}
	}
	return []string{"notepad", configPath}
}

func openEditor(configPath string) error {
	argv := editorCommand(configPath)
	fmt.Printf("Opening %s with %s...\n", configPath, argv[0])

	return exec.Command(argv[0], argv[1:]...).Run()
}
