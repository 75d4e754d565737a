// Package application contains use-case orchestration services.
package application

// Recorder receives operational counters from the services. The Prometheus
// metrics adapter satisfies it.
type Recorder interface {
	Launch(outcome string)
	TicketFailure(reason string)
	MetadataLookup(source string, ok bool)
	LockClear(err error)
	EnrichmentDrop()
}

type nopRecorder struct{}

func (nopRecorder) Launch(string)               {}
func (nopRecorder) TicketFailure(string)        {}
func (nopRecorder) MetadataLookup(string, bool) {}
func (nopRecorder) LockClear(error)             {}
func (nopRecorder) EnrichmentDrop()             {}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
