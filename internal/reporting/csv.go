package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
	"time"
)

// RenderCSV renders outcome rows as CSV string.
func RenderCSV(rows []OutcomeRow) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	w.Write([]string{"cycle_id", "finished_at", "tier", "action", "success", "ambiguous",
		"native", "stable", "target", "tx_ref", "error"})
	for _, o := range rows {
		w.Write([]string{
			o.CycleID,
			o.FinishedAt.UTC().Format(time.RFC3339),
			o.Tier,
			o.Action,
			strconv.FormatBool(o.Success),
			strconv.FormatBool(o.Ambiguous),
			o.Native,
			o.Stable,
			o.Target,
			o.TxRef,
			o.Error,
		})
	}
	w.Flush()

	return sb.String()
}
