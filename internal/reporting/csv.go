package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderCSV renders the monthly values as CSV string.
func RenderCSV(values []ValueRow) string {
	var sb strings.Builder

	sb.WriteString("source,name,origin,date,value\n")
	for _, v := range values {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f\n",
			csvField(v.Source),
			csvField(v.Name),
			v.Origin,
			v.Date.Format(time.RFC3339),
			v.Value,
		))
	}

	return sb.String()
}

func csvField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}
