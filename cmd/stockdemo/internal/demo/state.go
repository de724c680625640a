package demo

import "github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/metrics"

// State is the lifecycle of a Session.
//
//	Idle -> Connecting -> Initializing -> Running -> Stopping -> Stopped
//	Connecting, Initializing -> Failed
type State int32

const (
	Idle State = iota
	Connecting
	Initializing
	Running
	Stopping
	Stopped
	Failed
)

var stateNames = [...]string{
	Idle:         "idle",
	Connecting:   "connecting",
	Initializing: "initializing",
	Running:      "running",
	Stopping:     "stopping",
	Stopped:      "stopped",
	Failed:       "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func exportState(current State) {
	for i, name := range stateNames {
		v := 0.0
		if State(i) == current {
			v = 1
		}
		metrics.SessionState.WithLabelValues(name).Set(v)
	}
}
