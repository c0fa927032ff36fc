package bigwig

// Observer is the push-stream consumer QueryEngine.ReadWigData
// delivers results to (§6, §9). Next is called once per decoded data
// block, in no particular cross-block order; within one call the
// features are in on-disk order. At most one of Complete or Error is
// called, and it happens-after every Next call for the query; once the
// query's context is cancelled, neither is called.
type Observer interface {
	// Next delivers the features decoded from one data block.
	Next(features []Feature)
	// Complete signals the query finished with no further Next calls
	// to come, including the benign "unknown reference" case.
	Complete()
	// Error signals the query was abandoned after a failure. No
	// further Next, Complete, or Error calls follow.
	Error(err error)
}

// ChannelEvent is one item of the channel produced by
// NewChannelObserver: a Next event carries Features, a Complete event
// has Done set, and an Error event carries a non-nil Err.
type ChannelEvent struct {
	Features []Feature
	Err      error
	Done     bool
}

// NewChannelObserver returns an Observer that republishes every
// callback as a ChannelEvent on the returned channel, for callers who
// would rather range over a channel than implement Observer directly
// (§9 "Feature delivery as a stream"). The channel is closed after the
// terminal event (Done or a non-nil Err).
func NewChannelObserver() (Observer, <-chan ChannelEvent) {
	ch := make(chan ChannelEvent, 1)
	return &channelObserver{ch: ch}, ch
}

type channelObserver struct {
	ch chan ChannelEvent
}

func (o *channelObserver) Next(features []Feature) {
	o.ch <- ChannelEvent{Features: features}
}

func (o *channelObserver) Complete() {
	o.ch <- ChannelEvent{Done: true}
	close(o.ch)
}

func (o *channelObserver) Error(err error) {
	o.ch <- ChannelEvent{Err: err}
	close(o.ch)
}
