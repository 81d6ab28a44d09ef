// Package audio is the one-way, non-blocking bridge to the audio subsystem,
// which runs on its own goroutine and shares no mutable state with the
// simulation. Commands go out fire-and-forget; status messages come back and
// are polled at the frame boundary.
package audio

import "go.uber.org/zap"

// CommandKind discriminates outgoing audio commands.
type CommandKind int

const (
	CmdPlay CommandKind = iota
	CmdStopAll
)

// Command is one fire-and-forget request to the audio thread.
type Command struct {
	Kind CommandKind
	Name string
}

// Status is a message polled back from the audio thread.
type Status struct {
	Name string
	Done bool
}

// Bridge owns the channel pair. Sends never block: when the command buffer
// is full the command is dropped and counted, because a late sound effect is
// worse than a missing one.
type Bridge struct {
	commands chan Command
	status   chan Status
	dropped  uint64
	log      *zap.Logger
}

func NewBridge(commandBuf, statusBuf int, log *zap.Logger) *Bridge {
	return &Bridge{
		commands: make(chan Command, commandBuf),
		status:   make(chan Status, statusBuf),
		log:      log,
	}
}

// Play requests a sound effect by asset name.
func (b *Bridge) Play(name string) {
	b.send(Command{Kind: CmdPlay, Name: name})
}

// StopAll requests that all playing sounds stop. Used on scene teardown.
func (b *Bridge) StopAll() {
	b.send(Command{Kind: CmdStopAll})
}

func (b *Bridge) send(cmd Command) {
	select {
	case b.commands <- cmd:
	default:
		b.dropped++
		if b.log != nil {
			b.log.Debug("audio command dropped, buffer full",
				zap.String("name", cmd.Name), zap.Uint64("dropped", b.dropped))
		}
	}
}

// Commands exposes the outgoing channel to the audio thread.
func (b *Bridge) Commands() <-chan Command {
	return b.commands
}

// Report lets the audio thread push a status message. Non-blocking; a full
// buffer drops the report.
func (b *Bridge) Report(st Status) {
	select {
	case b.status <- st:
	default:
	}
}

// Poll drains any pending status messages. Called once per frame.
func (b *Bridge) Poll() []Status {
	var out []Status
	for {
		select {
		case st := <-b.status:
			out = append(out, st)
		default:
			return out
		}
	}
}

// Dropped reports how many commands were discarded on a full buffer.
func (b *Bridge) Dropped() uint64 {
	return b.dropped
}
