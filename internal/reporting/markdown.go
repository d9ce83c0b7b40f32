package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString("# Mission Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	s := r.Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Cycles | %d |\n", s.Cycles))
	sb.WriteString(fmt.Sprintf("| Succeeded | %d |\n", s.Succeeded))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", s.Failed))
	sb.WriteString(fmt.Sprintf("| Ambiguous | %d |\n", s.Ambiguous))
	sb.WriteString(fmt.Sprintf("| Cycles With Unknown Balance | %d |\n", s.UnknownReadout))
	sb.WriteString(fmt.Sprintf("| Tributes | %d |\n", s.TributeCount))
	sb.WriteString(fmt.Sprintf("| Tribute Total (confirmed) | %s |\n", s.TributeTotal.String()))
	if s.Cycles > 0 {
		sb.WriteString(fmt.Sprintf("| First Cycle | %s |\n", s.FirstCycleAt.UTC().Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Last Cycle | %s |\n", s.LastCycleAt.UTC().Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	sb.WriteString("## Tier Breakdown\n\n")
	if len(r.Breakdown) > 0 {
		sb.WriteString("| Tier | Action | Cycles | Succeeded |\n")
		sb.WriteString("|------|--------|--------|-----------|\n")
		for _, b := range r.Breakdown {
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %d |\n", b.Tier, b.Action, b.Count, b.Succeeded))
		}
	} else {
		sb.WriteString("No cycles recorded.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Outcomes\n\n")
	if len(r.Outcomes) > 0 {
		sb.WriteString("| Finished | Tier | Action | Result | Native | Stable | Target | Tx | Error |\n")
		sb.WriteString("|----------|------|--------|--------|--------|--------|--------|----|-------|\n")
		for _, o := range r.Outcomes {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
				o.FinishedAt.UTC().Format(time.RFC3339), o.Tier, o.Action, result(o),
				o.Native, o.Stable, o.Target, o.TxRef, escape(o.Error)))
		}
	} else {
		sb.WriteString("No outcomes available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## Tributes\n\n")
	if len(r.Tributes) > 0 {
		sb.WriteString("| Created | Amount | Recipient | Status | Signature |\n")
		sb.WriteString("|---------|--------|-----------|--------|-----------|\n")
		for _, t := range r.Tributes {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				t.CreatedAt.UTC().Format(time.RFC3339), t.Amount.String(), t.Recipient, t.Status, t.Signature))
		}
	} else {
		sb.WriteString("No tributes paid.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func result(o OutcomeRow) string {
	switch {
	case o.Success:
		return "ok"
	case o.Ambiguous:
		return "ambiguous"
	default:
		return "failed"
	}
}

// escape keeps error text inside one table cell.
func escape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
