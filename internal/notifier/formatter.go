package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"TroveDesk/internal/health"
	"TroveDesk/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// FormatPrices formats the current price set for a /prices reply.
func FormatPrices(set model.PriceSet, fetchedAt time.Time) string {
	var b strings.Builder
	b.WriteString("💱 <b>TroveDesk prices</b> (USD)\n\n")
	for _, sym := range set.Symbols() {
		v, _ := set.Get(sym)
		b.WriteString(fmt.Sprintf("%-6s %s\n", sym, v))
	}
	if !fetchedAt.IsZero() {
		b.WriteString(fmt.Sprintf("\nFetched: %s", fetchedAt.UTC().Format(timeLayout)))
	}
	return b.String()
}

// FormatPriceFailure formats a failed price lookup.
func FormatPriceFailure(errorType string, err error) string {
	return fmt.Sprintf("⚠️ <b>Price fetch failed</b>\nType: %s\n%s", errorType, html.EscapeString(err.Error()))
}

// FormatHealthTransition formats an indexer indicator change.
func FormatHealthTransition(prev, next health.Status) string {
	var b strings.Builder
	if next.Healthy {
		b.WriteString("✅ <b>Subgraph recovered</b>\n")
		if prev.Message != "" {
			b.WriteString(fmt.Sprintf("Previous: %s\n", html.EscapeString(prev.Message)))
		}
	} else {
		b.WriteString("🚨 <b>Subgraph degraded</b>\n")
		b.WriteString(html.EscapeString(next.Message) + "\n")
		b.WriteString("Serving on-chain fallbacks where available.\n")
	}
	b.WriteString(fmt.Sprintf("At: %s", next.UpdatedAt.UTC().Format(timeLayout)))
	return b.String()
}

// FormatStatus formats the /status reply. blockErr is set when the block probe failed.
func FormatStatus(status health.Status, block int64, blockErr error) string {
	var b strings.Builder
	b.WriteString("📡 <b>TroveDesk status</b>\n\n")
	if status.Healthy {
		b.WriteString("Subgraph: healthy\n")
	} else {
		b.WriteString(fmt.Sprintf("Subgraph: %s\n", html.EscapeString(status.Message)))
	}
	if blockErr != nil {
		b.WriteString(fmt.Sprintf("Indexed block: unavailable (%s)\n", html.EscapeString(blockErr.Error())))
	} else {
		b.WriteString(fmt.Sprintf("Indexed block: %d\n", block))
	}
	if !status.UpdatedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Last change: %s", status.UpdatedAt.UTC().Format(timeLayout)))
	}
	return b.String()
}
