package platform

import (
	"gazepomdp/internal/model"
	"gazepomdp/internal/rollout"
)

func sinkCounter(n *int) rollout.Sink {
	return rollout.SinkFunc(func(model.TraceRow) error {
		*n++
		return nil
	})
}
