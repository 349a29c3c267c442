package orchestrator

// errNotReady signals a call against an instance that is not in the ready
// state (maps to 503 at the HTTP layer).
type errNotReady struct{ state State }

func (e errNotReady) Error() string { return "orchestrator not ready: " + string(e.state) }

// IsNotReady reports whether err indicates the instance cannot serve yet.
func IsNotReady(err error) bool {
	_, ok := err.(errNotReady)
	return ok
}

// errStopped signals initialization attempted after shutdown.
type errStopped struct{ state State }

func (e errStopped) Error() string { return "orchestrator stopped: " + string(e.state) }

// IsStopped reports whether err indicates a terminal instance.
func IsStopped(err error) bool {
	_, ok := err.(errStopped)
	return ok
}
