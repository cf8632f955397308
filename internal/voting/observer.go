package voting

// Observer receives counters from the engine. internal/metrics provides a
// prometheus implementation.
type Observer interface {
	VoteRecorded(contentType, action string, err error)
	ReasonCacheLookup(contentType string, hit bool)
	ReasonCacheInvalidated(contentType string)
}

const (
	ActionAdd    = "add"
	ActionChange = "change"
	ActionRemove = "remove"
)

type nopObserver struct{}

func (nopObserver) VoteRecorded(string, string, error) {}
func (nopObserver) ReasonCacheLookup(string, bool) {}
func (nopObserver) ReasonCacheInvalidated(string) {}
