package eventlog

import "github.com/agbruneau/learning-events/pkg/models"

// Options are the optional fields of a Log call. The zero value is valid.
//
// Severity and Category override the taxonomy default when they hold a valid
// value; anything else is ignored. TimingMark consumes the named mark and its
// elapsed time becomes the duration. DurationMs is used only when no mark
// was found, and only if it is not negative. Context is copied.
type Options struct {
	Severity        models.Severity
	Category        models.Category
	ObjectID        string
	ObjectName      string
	Component       string
	ParentComponent string
	Result          string
	DurationMs      *int64
	TimingMark      string
	Context         map[string]any
	MessageContent  string
	MessageRole     string
}
