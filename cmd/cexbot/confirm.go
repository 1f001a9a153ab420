package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/alanyoungcy/cexbot/internal/config"
)

// confirm prints prompt and reports whether the operator typed exactly "yes".
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}

func liveWarning(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("\nWARNING: LIVE MODE. Real orders will be placed with real funds.\n")
	fmt.Fprintf(&b, "  mode:       %s\n", cfg.Mode)
	fmt.Fprintf(&b, "  exchanges:  %s\n", strings.Join(cfg.ConfiguredVenues(), ", "))
	if cfg.Mode == "trade" {
		if cfg.Trading.MultiPair {
			fmt.Fprintf(&b, "  pairs:      up to %d against %s\n", cfg.Trading.MaxPairs, cfg.Trading.QuoteCurrency)
		} else {
			fmt.Fprintf(&b, "  pair:       %s\n", cfg.Trading.Pair)
		}
		fmt.Fprintf(&b, "  max trade:  %.2f\n", cfg.Trading.MaxTradeAmount)
		fmt.Fprintf(&b, "  loss limit: %.2f\n", cfg.Risk.SessionLossLimit)
	}
	b.WriteString("Type 'yes' to continue: ")
	return b.String()
}
