package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ishanjain/dohwrap/pkg/dnsconf"
	"github.com/ishanjain/dohwrap/pkg/probe"
	"github.com/ishanjain/dohwrap/pkg/socket"
	"github.com/ishanjain/dohwrap/pkg/supervisor"
)

const boxWidth = 55

func printHeader(w io.Writer, title string) {
	pad := boxWidth - len(title)
	left := pad / 2
	fmt.Fprintln(w, "╔"+strings.Repeat("═", boxWidth)+"╗")
	fmt.Fprintln(w, "║"+strings.Repeat(" ", left)+title+strings.Repeat(" ", pad-left)+"║")
	fmt.Fprintln(w, "╚"+strings.Repeat("═", boxWidth)+"╝")
	fmt.Fprintln(w)
}

func printStatus(w io.Writer, s socket.StatusResponse) {
	printHeader(w, "dohwrap Status")

	fmt.Fprintf(w, "  Version:             %s\n", s.Version)
	fmt.Fprintf(w, "  Install dir:         %s\n", s.InstallDir)
	fmt.Fprintf(w, "  Allow-list:          %s (missing: %s)\n", s.AllowList, s.MissingPolicy)

	switch s.Proxy.Status {
	case supervisor.StatusRunning:
		fmt.Fprintf(w, "  ✓ Proxy:             running (pid %d, since %s)\n",
			s.Proxy.PID, s.Proxy.StartTime.Format("2006-01-02 15:04:05"))
	case supervisor.StatusExited:
		fmt.Fprintf(w, "  ⚠ Proxy:             exited (code %d)\n", s.Proxy.ExitCode)
	case supervisor.StatusFailed:
		fmt.Fprintf(w, "  ❌ Proxy:            failed to start: %s\n", s.Proxy.Error)
	default:
		fmt.Fprintf(w, "  Proxy:               %s\n", s.Proxy.Status)
	}

	fmt.Fprintf(w, "  Managed interfaces:  %d\n", s.Managed)
	if s.LastPass != nil {
		fmt.Fprintf(w, "  Last update:         %s (took %s)\n",
			s.LastPass.Started.Format("2006-01-02 15:04:05"), s.LastPass.Duration)
		if s.LastPass.Error != "" {
			fmt.Fprintf(w, "  Last error:          %s\n", s.LastPass.Error)
		}
	}
	fmt.Fprintln(w)
}

func printInterfaces(w io.Writer, list []dnsconf.InterfaceResult) {
	printHeader(w, "Managed Interfaces")

	if len(list) == 0 {
		fmt.Fprintln(w, "  No interfaces managed.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Run 'dohwrap setup' to choose the interfaces.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  INTERFACE\tIPV4\tIPV6\tDNS")
	fmt.Fprintln(tw, "  ---------\t----\t----\t---")
	for _, iface := range list {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n",
			iface.Name, orDash(iface.Addresses.IPv4), orDash(iface.Addresses.IPv6), appliedState(iface.Applied))
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Total: %d interface(s)\n", len(list))
}

// printProbe prints the results and returns the number of failures
func printProbe(w io.Writer, results []probe.Result) int {
	printHeader(w, "Proxy Probe")

	if len(results) == 0 {
		fmt.Fprintln(w, "  Nothing to probe.")
		return 0
	}

	failed := 0
	for _, r := range results {
		mark := "✓"
		if !r.OK() {
			mark = "❌"
			failed++
		}
		fmt.Fprintf(w, "  %s %s\n", mark, r.String())
	}
	return failed
}

func appliedState(applied []dnsconf.Applied) string {
	if len(applied) == 0 {
		return "-"
	}
	for _, a := range applied {
		if a.Error != "" {
			return "❌ " + a.Error
		}
	}
	return "✓ " + applied[len(applied)-1].Server
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
