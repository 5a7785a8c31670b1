package ingest

import "strings"

// SplitLine splits one CSV line into its fields.
//
// A double quote outside a quoted span opens one, "" inside a span is a
// literal quote and a lone quote closes the span. Commas outside a span end
// the current field. Every field is trimmed of surrounding whitespace. An
// unterminated span is closed at the end of the line.
func SplitLine(line string) []string {
	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && !inQuotes:
			inQuotes = true
		case c == '"' && i+1 < len(line) && line[i+1] == '"':
			field.WriteByte('"')
			i++
		case c == '"':
			inQuotes = false
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(field.String()))
			field.Reset()
		default:
			field.WriteByte(c)
		}
	}

	return append(fields, strings.TrimSpace(field.String()))
}

// QuoteField renders value as a single CSV field that SplitLine reads back
// unchanged. Values containing a comma or a quote are wrapped in quotes with
// inner quotes doubled.
func QuoteField(value string) string {
	if !strings.ContainsAny(value, `",`) {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// JoinLine is the inverse of SplitLine for fields without surrounding
// whitespace.
func JoinLine(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = QuoteField(f)
	}
	return strings.Join(quoted, ",")
}
