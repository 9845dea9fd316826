package queue

import (
	"context"
	"strconv"
	"sync"
	"time"

	"weather-inference/internal/domain/model"
)

type workerState struct {
	queueName string
	startedAt time.Time
	running   bool
}

type QueueHealthGateway struct {
	workers map[string]*workerState
	mutex   sync.RWMutex
}

var _ HealthGateway = (*QueueHealthGateway)(nil)

func NewQueueHealthGateway() *QueueHealthGateway {
	return &QueueHealthGateway{
		workers: make(map[string]*workerState),
	}
}

func (gateway *QueueHealthGateway) RegisterWorker(name, queueName string) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	gateway.workers[name] = &workerState{queueName: queueName, startedAt: time.Now(), running: true}
}

func (gateway *QueueHealthGateway) MarkStopped(name string) {
	gateway.mutex.Lock()
	defer gateway.mutex.Unlock()
	if state, ok := gateway.workers[name]; ok {
		state.running = false
	}
}

func (gateway *QueueHealthGateway) Health(ctx context.Context) model.ComponentHealthStatus {
	gateway.mutex.RLock()
	defer gateway.mutex.RUnlock()

	if len(gateway.workers) == 0 {
		return model.ComponentHealthStatus{
			Status: model.StatusUnknown,
			Details: map[string]string{
				"message":       "No workers registered",
				"workers_count": "0",
			},
		}
	}

	overallStatus := model.StatusUp
	details := make(map[string]string)
	workersUp := 0

	for name, state := range gateway.workers {
		details[name+"_queue"] = state.queueName
		if state.running {
			workersUp++
			details[name+"_status"] = string(model.StatusUp)
			details[name+"_uptime"] = time.Since(state.startedAt).Truncate(time.Second).String()
		} else {
			overallStatus = model.StatusDown
			details[name+"_status"] = string(model.StatusDown)
		}
	}

	details["workers_total"] = strconv.Itoa(len(gateway.workers))
	details["workers_up"] = strconv.Itoa(workersUp)
	details["workers_down"] = strconv.Itoa(len(gateway.workers) - workersUp)

	return model.ComponentHealthStatus{
		Status:  overallStatus,
		Details: details,
	}
}
