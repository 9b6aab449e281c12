package dispatcher

import "context"

// Session is the free sequential composition of requests: Pure(R) or
// Free(Request(Session(R))). Rather than modelling the recursive sum type
// directly, Session exposes a step interpreter: repeatedly call Step until
// it reports done, running whatever Request it returns and feeding the
// outcome back in.
type Session[R any] struct {
	step func() (final R, done bool, next *pendingStep[R])
}

// pendingStep carries the Request for the next stage along with a
// continuation that turns its outcome into the following Session state.
type pendingStep[R any] struct {
	run func(ctx context.Context, d *Dispatcher) (Session[R], error)
}

// Pure produces a Session that has already reached its result.
func Pure[R any](value R) Session[R] {
	return Session[R]{step: func() (R, bool, *pendingStep[R]) {
		return value, true, nil
	}}
}

// Bind sequences a Request[A] with a continuation that produces the rest of
// the session once A's result is known -- the Free(Request(Session)) case.
// An error returned by PerformRequest (protocol, transport or context)
// short-circuits the chain by resolving the whole session as a failure;
// RunSession propagates it. A backend error that the request's parser
// returns as part of A reaches k like any other result.
func Bind[A, R any](req Request[A], k func(A) Session[R]) Session[R] {
	var zero R
	return Session[R]{step: func() (R, bool, *pendingStep[R]) {
		return zero, false, &pendingStep[R]{
			run: func(ctx context.Context, d *Dispatcher) (Session[R], error) {
				a, err := PerformRequest(ctx, d, req)
				if err != nil {
					return Session[R]{}, err
				}
				return k(a), nil
			},
		}
	}}
}

// RunSession interprets a Session to completion against d, running each
// stage's Request only after the previous stage's result is available.
// Wire-level pipelining across stages is not attempted here -- a caller
// that wants that builds a single multi-message Request instead.
func RunSession[R any](ctx context.Context, d *Dispatcher, s Session[R]) (R, error) {
	for {
		value, done, next := s.step()
		if done {
			return value, nil
		}
		nextSession, err := next.run(ctx, d)
		if err != nil {
			var zero R
			return zero, err
		}
		s = nextSession
	}
}
