package console

import (
	"context"

	"archon/internal/logging"
)

// Run is the headless event loop. Each iteration renders the state, then
// applies the first action to arrive from input or inbound. It returns nil
// once an action sets the quit flag and ctx.Err() if ctx ends first.
//
// A closed input channel stops input; completions keep flowing until quit.
// render must not mutate the state or block.
func Run(ctx context.Context, engine *Engine, inbound, input <-chan Action, render func(*State)) error {
	if render == nil {
		render = func(*State) {}
	}
	state := engine.State()

	for {
		render(state)

		var a Action
		select {
		case <-ctx.Done():
			return ctx.Err()
		case done, ok := <-inbound:
			if !ok {
				inbound = nil
				continue
			}
			a = done
		case in, ok := <-input:
			if !ok {
				logging.UpdateDebug("input closed")
				input = nil
				continue
			}
			a = in
		}

		engine.Apply(a)
		if state.ShouldQuit {
			render(state)
			return nil
		}
	}
}

// Idle reports whether no operation is in flight.
func (s *State) Idle() bool {
	return len(s.Operations.InFlight()) == 0
}
