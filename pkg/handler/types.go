package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mproffitt/folden/pkg/workflow"
)

// InboxCapacity size of a worker's control inbox. Control traffic is rare so a
// full inbox applies backpressure to the sender rather than dropping a message.
const InboxCapacity = 2

// TraceBuffer number of records buffered per trace subscriber before records
// are dropped for that subscriber
const TraceBuffer = 64

// State lifecycle of a worker
type State int32

const (
	Initializing State = iota
	Watching
	Processing
	Draining
	Terminated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Watching:
		return "watching"
	case Processing:
		return "processing"
	case Draining:
		return "draining"
	case Terminated:
		return "terminated"
	}
	return "unknown"
}

// Message control message sent to a worker's inbox
type Message interface {
	isMessage()
}

// StopMessage asks the worker to finish its current event and exit
type StopMessage struct{}

// TraceMessage registers a sink which receives the outcome of every event
// processed from now on
type TraceMessage struct {
	Sink *TraceSink
}

func (StopMessage) isMessage()  {}
func (TraceMessage) isMessage() {}

// TraceRecord the outcome of one action for one event
type TraceRecord struct {
	Directory     string `json:"directory"`
	EventFilePath string `json:"event_file_path"`
	workflow.ActionOutcome
}

// TraceSink a live subscription to a worker's outcomes.
//
// The worker owns the records channel once the sink has been delivered and
// closes it when the subscription is cancelled or the worker exits.
type TraceSink struct {
	ID      string
	ctx     context.Context
	records chan TraceRecord
}

// NewTraceSink a sink which stays subscribed until ctx is done
func NewTraceSink(ctx context.Context) *TraceSink {
	return &TraceSink{
		ID:      uuid.NewString(),
		ctx:     ctx,
		records: make(chan TraceRecord, TraceBuffer),
	}
}

// Records the stream of trace records
func (s *TraceSink) Records() <-chan TraceRecord {
	return s.records
}

func (s *TraceSink) cancelled() bool {
	return s.ctx.Err() != nil
}

// offer delivers without blocking, reporting whether the record was accepted
func (s *TraceSink) offer(record TraceRecord) bool {
	select {
	case s.records <- record:
		return true
	default:
		return false
	}
}

func (s *TraceSink) close() {
	close(s.records)
}

// pruneInterval how often an idle worker checks for cancelled subscribers
var pruneInterval = 5 * time.Second
