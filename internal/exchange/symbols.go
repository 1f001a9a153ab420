package exchange

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// ResolveSymbols returns the symbols quoted in quote that every listing venue
// supports, sorted and capped at max. Venues that cannot list symbols are
// skipped. When nothing is found the fallback symbol is returned alone.
func ResolveSymbols(ctx context.Context, venues []domain.ExchangeAdapter, quote string, max int, fallback string, logger *slog.Logger) []string {
	var common map[string]bool
	for _, v := range venues {
		lister, ok := v.(domain.SymbolLister)
		if !ok {
			continue
		}
		syms, err := lister.Symbols(ctx, quote)
		if err != nil {
			if !errors.Is(err, domain.ErrUnsupported) {
				logger.WarnContext(ctx, "list symbols failed",
					slog.String("exchange", v.Name()),
					slog.String("error", err.Error()),
				)
			}
			continue
		}
		set := make(map[string]bool, len(syms))
		for _, s := range syms {
			set[s] = true
		}
		if common == nil {
			common = set
			continue
		}
		for s := range common {
			if !set[s] {
				delete(common, s)
			}
		}
	}

	if len(common) == 0 {
		logger.WarnContext(ctx, "no common symbols found, using configured pair",
			slog.String("quote", quote),
			slog.String("pair", fallback),
		)
		return []string{fallback}
	}

	out := make([]string, 0, len(common))
	for s := range common {
		out = append(out, s)
	}
	sort.Strings(out)
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
