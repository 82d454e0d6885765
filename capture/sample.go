package capture

import "strings"

const (
	// FieldDelimiter separates the fields of a sample line.
	FieldDelimiter = ";"
	// RawSampleFields is the field count of a well-formed raw sample line:
	// sequence;x;y;z;label.
	RawSampleFields = 5
)

// StripSequenceField removes the leading sequence field from a well-formed raw
// sample line ("seq;x;y;z;label" becomes "x;y;z;label").
//
// Lines that do not have exactly RawSampleFields fields are returned unchanged,
// so malformed rows are persisted as received rather than dropped.
func StripSequenceField(line string) string {
	parts := strings.Split(line, FieldDelimiter)
	if len(parts) != RawSampleFields {
		return line
	}

	return strings.Join(parts[1:], FieldDelimiter)
}

// StripSequenceFields applies StripSequenceField to every row, returning a new slice.
func StripSequenceFields(rows []string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = StripSequenceField(row)
	}

	return out
}
