// Package allowlist reads and writes the operator's interface allow-list,
// a plain-text file holding one interface name per line.
package allowlist

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads the allow-list at path.
// Blank lines are skipped, CRLF endings tolerated and repeated names kept once,
// at their first position. A missing file returns an error satisfying
// errors.Is(err, fs.ErrNotExist).
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var names []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		name := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read allow-list: %w", err)
	}
	return names, nil
}

// Save overwrites the allow-list at path with names, one per line
func Save(path string, names []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create allow-list directory: %w", err)
	}

	// Write to temp file
	tempPath := path + ".tmp"
	tempFile, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create allow-list: %w", err)
	}

	w := bufio.NewWriter(tempFile)
	for _, name := range names {
		if _, err := fmt.Fprintln(w, name); err != nil {
			tempFile.Close()
			os.Remove(tempPath)
			return fmt.Errorf("failed to write allow-list: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tempFile.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write allow-list: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	// Try atomic rename first, copy content if the filesystem refuses it
	if err := os.Rename(tempPath, path); err != nil {
		content, readErr := os.ReadFile(tempPath)
		if readErr != nil {
			os.Remove(tempPath)
			return fmt.Errorf("rename failed and couldn't read temp file: %w", err)
		}

		if writeErr := os.WriteFile(path, content, 0644); writeErr != nil {
			os.Remove(tempPath)
			return fmt.Errorf("rename failed and couldn't write allow-list: %w", err)
		}

		os.Remove(tempPath)
	}

	return nil
}
