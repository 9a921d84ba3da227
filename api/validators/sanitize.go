package validators

import "strings"

const (
	// maxCodeLength bounds scanned codes; printed labels are far shorter.
	maxCodeLength = 128
	maxBinLength  = 64
	maxNoteLength = 1000
)

func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}

// SanitizeCode trims a scanned code. Scanners in keyboard mode append a
// trailing newline or tab.
func SanitizeCode(input string) string {
	return SanitizeString(input, maxCodeLength)
}

// SanitizeBin normalises a shelf or bin label to upper case with single
// inner spaces. Blank input clears the pointer.
func SanitizeBin(input *string) *string {
	if input == nil {
		return nil
	}
	bin := strings.ToUpper(strings.Join(strings.Fields(*input), " "))
	bin = SanitizeString(bin, maxBinLength)
	if bin == "" {
		return nil
	}
	return &bin
}

// SanitizeNotes trims free-text notes and drops them when blank.
func SanitizeNotes(input *string) *string {
	if input == nil {
		return nil
	}
	notes := SanitizeString(*input, maxNoteLength)
	if notes == "" {
		return nil
	}
	return &notes
}
