package worker

import (
	"github.com/google/uuid"

	"vantage/internal/matching"
)

// command is the internal envelope every Client call turns into before it
// reaches the InstrumentWorker's single consumer loop.
type command interface {
	isCommand()
}

type submitCommand struct {
	order Order
	reply chan<- submitReply
}

type submitReply struct {
	result *matching.ProcessResult
	err    error
}

type cancelCommand struct {
	orderID uuid.UUID
	reply   chan<- cancelReply
}

type cancelReply struct {
	order *matching.Order
	err   error
}

type snapshotCommand struct {
	levels int
	reply  chan<- snapshotReply
}

type snapshotReply struct {
	snapshot matching.DepthSnapshot
}

type haltCommand struct{ reply chan<- struct{} }
type resumeCommand struct{ reply chan<- struct{} }
type shutdownCommand struct{ reply chan<- struct{} }

func (submitCommand) isCommand()   {}
func (cancelCommand) isCommand()   {}
func (snapshotCommand) isCommand() {}
func (haltCommand) isCommand()     {}
func (resumeCommand) isCommand()   {}
func (shutdownCommand) isCommand() {}

// Order is an alias for matching.Order; Submit hands it to the engine
// unchanged.
type Order = matching.Order
