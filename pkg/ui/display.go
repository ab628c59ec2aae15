package ui

import (
	"fmt"
	"io"
	"strings"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

// DisplayBanner shows the setup banner
func DisplayBanner(w io.Writer, version string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s%s", colorCyan, colorBold)
	fmt.Fprintln(w, "╔═══════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(w, "║%s║\n", center(fmt.Sprintf("dohwrap %s", version), 63))
	fmt.Fprintf(w, "║%s║\n", center("Network interface setup", 63))
	fmt.Fprintln(w, "╚═══════════════════════════════════════════════════════════════╝")
	fmt.Fprintf(w, "%s", colorReset)
	fmt.Fprintln(w)
}

// InterfaceRow holds display info for an interface
type InterfaceRow struct {
	Name      string
	Type      string
	Addresses []string
}

// DisplayInterfaces shows the interfaces with 1-based indexes
func DisplayInterfaces(w io.Writer, rows []InterfaceRow) {
	fmt.Fprintf(w, "%s%sNetwork interfaces%s\n", colorBold, colorCyan, colorReset)
	fmt.Fprintln(w)

	if len(rows) == 0 {
		fmt.Fprintf(w, "  %sNo active network interfaces found.%s\n", colorYellow, colorReset)
		fmt.Fprintln(w)
		return
	}

	maxNameLen := 0
	for _, row := range rows {
		if len(row.Name) > maxNameLen {
			maxNameLen = len(row.Name)
		}
	}

	for i, row := range rows {
		namePad := strings.Repeat(" ", maxNameLen-len(row.Name))
		fmt.Fprintf(w, "  %s%2d%s  %s%s%s%s  %s%-9s%s %s\n",
			colorBold, i+1, colorReset,
			colorGreen, row.Name, colorReset, namePad,
			colorDim, row.Type, colorReset,
			strings.Join(row.Addresses, ", "))
	}
	fmt.Fprintln(w)
}

// DisplaySelection shows the saved selection
func DisplaySelection(w io.Writer, names []string, path string) {
	fmt.Fprintln(w)
	if len(names) == 0 {
		fmt.Fprintf(w, "%sNo interface selected, DNS will not be managed.%s\n", colorYellow, colorReset)
	} else {
		fmt.Fprintf(w, "%s%sManaged interfaces%s\n", colorBold, colorCyan, colorReset)
		for _, name := range names {
			fmt.Fprintf(w, "  %s✓%s %s\n", colorGreen, colorReset, name)
		}
	}
	fmt.Fprintf(w, "%sSaved to %s%s\n", colorDim, path, colorReset)
	fmt.Fprintln(w)
}

func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	left := (width - n) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-n-left)
}
