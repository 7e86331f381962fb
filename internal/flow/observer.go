package flow

// RouteState is a router's position in its decide-then-delegate protocol.
type RouteState int

const (
	// RouteNotStarted is the state before Execute is called.
	RouteNotStarted RouteState = iota
	// RouteDeciding means the invoker is choosing a candidate.
	RouteDeciding
	// RouteDelegating means exactly one candidate was chosen and is running.
	RouteDelegating
	// RouteCompleted means the chosen candidate succeeded.
	RouteCompleted
	// RouteFailed means deciding or delegating failed.
	RouteFailed
)

// String returns a human-readable state name.
func (s RouteState) String() string {
	switch s {
	case RouteNotStarted:
		return "not_started"
	case RouteDeciding:
		return "deciding"
	case RouteDelegating:
		return "delegating"
	case RouteCompleted:
		return "completed"
	case RouteFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Observer receives lifecycle notifications for one run. Calls happen on the
// goroutine executing the run, in execution order.
type Observer interface {
	// UnitStarted is called before a unit begins executing.
	UnitStarted(unit string)
	// UnitFinished is called after a unit returns; err is nil on success.
	UnitFinished(unit string, err error)
	// RouteChanged is called on every router state transition. route is the
	// chosen candidate once known, otherwise "".
	RouteChanged(router string, state RouteState, route string)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) UnitStarted(string) {}
func (NopObserver) UnitFinished(string, error) {}
func (NopObserver) RouteChanged(string, RouteState, string) {}
