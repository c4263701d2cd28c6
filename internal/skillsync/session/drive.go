package session

import "context"

// Decider supplies the operator's next decision for a session waiting on
// input.
type Decider interface {
	Decide(s *Session) Event
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(s *Session) Event

func (f DeciderFunc) Decide(s *Session) Event { return f(s) }

// Drive runs a session to completion on the calling goroutine and returns
// its exit code. Cancelling ctx is delivered as Cancel. The source is always
// released before Drive returns.
func Drive(ctx context.Context, s *Session, svc *Services, d Decider) int {
	defer svc.Close()

	eff := s.Start()
	for !s.Finished() {
		var ev Event
		switch {
		case ctx.Err() != nil:
			ev = Cancel{}
		case eff == nil:
			ev = d.Decide(s)
		default:
			ev = svc.Perform(ctx, eff)
			if ctx.Err() != nil {
				ev = Cancel{}
			}
		}
		if ev == nil {
			ev = Quit{}
		}
		eff = s.Handle(ev)
	}
	return s.ExitCode()
}
