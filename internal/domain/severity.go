package domain

import "strconv"

// SeverityClass is the model output class.
type SeverityClass int

const (
	SeverityNoLeak    SeverityClass = 0
	SeverityMinorLeak SeverityClass = 1
	SeverityMajorLeak SeverityClass = 2
)

// Status labels shown to operators.
const (
	StatusNoLeak    = "No Leak"
	StatusMinorLeak = "Minor Leak"
	StatusMajorLeak = "Major Leak/Burst"
	StatusUnknown   = "Unknown Status"
)

// StatusText maps a class id to its label. Unknown ids map to StatusUnknown.
func StatusText(class SeverityClass) string {
	switch class {
	case SeverityNoLeak:
		return StatusNoLeak
	case SeverityMinorLeak:
		return StatusMinorLeak
	case SeverityMajorLeak:
		return StatusMajorLeak
	default:
		return StatusUnknown
	}
}

// IsValid checks if the class is one the model was trained on.
func (c SeverityClass) IsValid() bool {
	return c == SeverityNoLeak || c == SeverityMinorLeak || c == SeverityMajorLeak
}

// String returns "Class N".
func (c SeverityClass) String() string {
	return "Class " + strconv.Itoa(int(c))
}
