package metrics

import (
	"fmt"
	"time"
)

// formatReport mirrors the teacher's connectiontracker report line shape (curr/peak/total/errs plus
// cumulative timing), just with proxy-check vocabulary in place of connection vocabulary.
func formatReport(name string, current, peak, total, errs int, totalFor time.Duration) string {
	return fmt.Sprintf("curr=%d peak=%d total=%d errs=%d totalFor=%0.1fs (%s)",
		current, peak, total, errs, totalFor.Round(time.Millisecond*100).Seconds(), name)
}
