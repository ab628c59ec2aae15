// Package setup implements the interactive interface selection.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/allowlist"
	"github.com/ishanjain/dohwrap/pkg/netif"
	"github.com/ishanjain/dohwrap/pkg/selector"
	"github.com/ishanjain/dohwrap/pkg/ui"
)

const prompt = "Interface number (0 to finish): "

// Wizard asks the operator which interfaces to manage
type Wizard struct {
	In      io.Reader
	Out     io.Writer
	Version string
	Logger  logr.Logger
}

// Run lists ifaces and collects the operator's picks in selection order.
// Input "0" or end of input finishes. Anything that is not an index of the
// list is ignored and the prompt repeats.
func (w *Wizard) Run(ifaces []netif.Interface) []string {
	rows := make([]ui.InterfaceRow, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs := make([]string, 0, len(iface.Addrs))
		for _, ip := range iface.Addrs {
			addrs = append(addrs, ip.String())
		}
		rows = append(rows, ui.InterfaceRow{Name: iface.Name, Type: iface.Type.String(), Addresses: addrs})
	}
	ui.DisplayInterfaces(w.Out, rows)

	selected := []string{}
	chosen := make(map[int]bool)

	scanner := bufio.NewScanner(w.In)
	for {
		fmt.Fprint(w.Out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(w.Out)
			break
		}

		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil || n < 0 || n > len(ifaces) {
			continue
		}
		if n == 0 {
			break
		}

		name := ifaces[n-1].Name
		if chosen[n] {
			fmt.Fprintf(w.Out, "%s is already selected\n", name)
			continue
		}
		chosen[n] = true
		selected = append(selected, name)
		fmt.Fprintf(w.Out, "Added %s\n", name)
	}

	return selected
}

// RunAndSave enumerates the eligible interfaces, runs the wizard and
// overwrites the allow-list at path with the selection
func (w *Wizard) RunAndSave(lister netif.Lister, path string) ([]string, error) {
	all, err := lister.List()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate interfaces: %w", err)
	}

	ui.DisplayBanner(w.Out, w.Version)

	names := w.Run(selector.Eligible(all))
	if err := allowlist.Save(path, names); err != nil {
		return nil, fmt.Errorf("failed to save allow-list: %w", err)
	}

	w.Logger.V(1).Info("Saved interface allow-list", "path", path, "count", len(names))
	ui.DisplaySelection(w.Out, names, path)
	return names, nil
}
