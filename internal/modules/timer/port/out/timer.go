package out

// TickSource decides the cadence at which the timer recomputes metrics.
type TickSource interface {
	Start(onTick func()) TickHandle
}

// TickHandle cancels one Start. Stop must not block on an in-flight tick.
type TickHandle interface {
	Stop()
}
