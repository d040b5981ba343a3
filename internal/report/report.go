// Package report renders audit batch summaries for people and for
// machines. The human renderer writes a per-transaction table with a
// cross-check column; the JSON payload mirrors it field for field.
package report

import (
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"txaudit/internal/domain"
)

var weiPerETH = new(big.Float).SetFloat64(1e18)

// Renderer writes the human-readable report. With emoji disabled the
// icons degrade to plain tokens so CI logs stay greppable.
type Renderer struct {
	w     io.Writer
	emoji bool
}

func NewRenderer(w io.Writer, emoji bool) *Renderer {
	return &Renderer{w: w, emoji: emoji}
}

func (r *Renderer) iconOK() string {
	if r.emoji {
		return "✅"
	}
	return "OK"
}

func (r *Renderer) iconErr() string {
	if r.emoji {
		return "❌"
	}
	return "ERR"
}

func (r *Renderer) iconWarn() string {
	if r.emoji {
		return "⚠️"
	}
	return "WARN"
}

func (r *Renderer) matchNote() string {
	if r.emoji {
		return "🔒 ok"
	}
	return "MATCH ok"
}

func (r *Renderer) mismatchNote() string {
	if r.emoji {
		return "⚠️ mismatch"
	}
	return "MISMATCH"
}

// Render writes the provider banner, one line per audited hash and the
// closing summary.
func (r *Renderer) Render(s *domain.BatchSummary) {
	fmt.Fprintf(r.w, "%s Primary: %s (chainId %d)\n", r.iconOK(), s.Primary.Network, s.Primary.ChainID)
	if s.Secondary != nil {
		fmt.Fprintf(r.w, "%s Secondary: %s (chainId %d)\n", r.iconOK(), s.Secondary.Network, s.Secondary.ChainID)
	}
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, "# tx | status | chain | block | fee(ETH) | commitment | cross-check")

	for i := range s.Results {
		r.renderResult(&s.Results[i])
	}

	fmt.Fprintf(r.w, "\nProcessed %d tx(s) in %s.\n", s.Total(), FormatElapsed(s.Elapsed))
	fmt.Fprintf(r.w, "Summary: success=%d, failed=%d, mismatches=%d, not_found=%d, provider_errors=%d, invalid_input=%d\n",
		s.Success, s.Failed, s.Mismatches, s.NotFound, s.ProviderErrors, s.InvalidInput)
	if s.HistoryDrifts > 0 {
		fmt.Fprintf(r.w, "%s %d transaction(s) drifted from the journaled commitment.\n", r.iconWarn(), s.HistoryDrifts)
	}
	if s.Mismatches > 0 {
		fmt.Fprintf(r.w, "%s %d transaction(s) had cross-provider mismatches.\n", r.iconWarn(), s.Mismatches)
	}
}

func (r *Renderer) renderResult(res *domain.AuditResult) {
	switch res.Verdict {
	case domain.VerdictInvalidInput:
		fmt.Fprintf(r.w, "%s %s | invalid hash\n", r.iconErr(), res.TxHash)
		return
	case domain.VerdictNotFound:
		fmt.Fprintf(r.w, "%s %s | not-found\n", r.iconErr(), res.TxHash)
		return
	}

	bundle := res.Bundle()
	if bundle == nil {
		fmt.Fprintf(r.w, "%s %s | provider error: %s\n", r.iconErr(), res.TxHash, errDetail(res))
		return
	}

	icon, statusStr := r.iconOK(), "success"
	if bundle.Status != 1 {
		icon, statusStr = r.iconErr(), "failed"
	}
	fmt.Fprintf(r.w, "%s %s | %s | %d | %d | %s | %s | %s\n",
		icon, res.TxHash, statusStr, bundle.ChainID, bundle.BlockNumber,
		FormatFeeETH(bundle.TotalFeeWei()), bundle.Commitment.Hex(), r.crossNote(res))
	if res.HistoryDrift {
		fmt.Fprintf(r.w, "%s %s drifted from the journaled commitment\n", r.iconWarn(), res.TxHash)
	}
}

// crossNote fills the last table column. Single-provider runs have
// nothing to compare, so the column stays a dash.
func (r *Renderer) crossNote(res *domain.AuditResult) string {
	if res.Secondary == nil {
		return "-"
	}
	if res.Match != nil {
		if *res.Match {
			return r.matchNote()
		}
		return r.mismatchNote()
	}
	if note := r.outcomeNote(res.Secondary, "secondary"); note != "" {
		return note
	}
	if note := r.outcomeNote(res.Primary, "primary"); note != "" {
		return note
	}
	return "-"
}

func (r *Renderer) outcomeNote(o *domain.FetchOutcome, side string) string {
	if o == nil {
		return ""
	}
	switch o.State {
	case domain.OutcomeNotFound:
		return fmt.Sprintf("%s not-found on %s", r.iconWarn(), side)
	case domain.OutcomeError:
		return fmt.Sprintf("%s error on %s: %s", r.iconWarn(), side, o.Err)
	}
	return ""
}

func errDetail(res *domain.AuditResult) string {
	var parts []string
	if res.Primary != nil && res.Primary.Err != "" {
		parts = append(parts, res.Primary.Err)
	}
	if res.Secondary != nil && res.Secondary.Err != "" {
		parts = append(parts, res.Secondary.Err)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "; ")
}

// FormatFeeETH renders a wei amount as ETH with six decimals, or a
// dash when no gas price was available.
func FormatFeeETH(wei *big.Int) string {
	if wei == nil {
		return "-"
	}
	fee := new(big.Float).SetInt(wei)
	fee.Quo(fee, weiPerETH)
	return fee.Text('f', 6)
}

// FormatElapsed renders sub-second durations in milliseconds and
// everything else in seconds with two decimals.
func FormatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
