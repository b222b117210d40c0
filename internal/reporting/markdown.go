package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Index Statement %s\n\n", r.Month))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Timezone: %s\n\n", r.Location))

	sb.WriteString("## Catalog\n\n")
	sb.WriteString("| Series | Count |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total | %d |\n", r.Series.Total))
	sb.WriteString(fmt.Sprintf("| ORIGINAL | %d |\n", r.Series.Original))
	sb.WriteString(fmt.Sprintf("| DERIVED | %d |\n", r.Series.Derived))
	sb.WriteString("\n")

	sb.WriteString("## Monthly Values\n\n")
	if len(r.Values) > 0 {
		sb.WriteString("| Source | Name | Origin | Date | Value |\n")
		sb.WriteString("|--------|------|--------|------|-------|\n")
		for _, v := range r.Values {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.4f |\n",
				v.Source, v.Name, v.Origin, v.Date.Format("2006-01-02"), v.Value))
		}
	} else {
		sb.WriteString("No monthly values available.\n")
	}
	sb.WriteString("\n")

	if !r.Complete() {
		sb.WriteString("## Missing\n\n")
		for _, m := range r.Missing {
			sb.WriteString(fmt.Sprintf("- %s\n", m))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
