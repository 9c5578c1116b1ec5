package quoting

// Detector finds the characters that force a CSV field to be quoted: CR, LF,
// the separator, and the quote and escape characters when configured.
type Detector interface {
	// FirstTriggerIndex returns the byte offset of the first trigger in text,
	// or -1 when there is none.
	FirstTriggerIndex(text []byte) int
	// FirstTriggerIndexString is FirstTriggerIndex for a string.
	FirstTriggerIndexString(text string) int
	// NeedsQuoting reports whether text contains any trigger.
	NeedsQuoting(text []byte) bool
}
