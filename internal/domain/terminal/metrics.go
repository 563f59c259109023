package terminal

// Recorder receives session lifecycle and traffic events.
type Recorder interface {
	SessionCreated()
	SessionRejected(reason string)
	SessionEnded(status Status)
	SetSessionsActive(n int)
	PtyBytesIn(n int)
	PtyBytesOut(n int)
}

type nopRecorder struct{}

func (nopRecorder) SessionCreated()        {}
func (nopRecorder) SessionRejected(string) {}
func (nopRecorder) SessionEnded(Status)    {}
func (nopRecorder) SetSessionsActive(int)  {}
func (nopRecorder) PtyBytesIn(int)         {}
func (nopRecorder) PtyBytesOut(int)        {}
