package application

import (
	"encoding/json"
	"net/http"
)

// handleHealthCheck handles the /healthz endpoint.
// Returns 200 OK once the router is running, 503 otherwise.
func (a *Application) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	status := a.GetHealthStatus()

	w.Header().Set("Content-Type", "application/json")

	if status.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(status); err != nil {
		a.log.WithError(err).Error("Failed to encode health status")
	}
}

// HealthStatus represents the health status of the application.
type HealthStatus struct {
	Healthy   bool                      `json:"healthy"`
	Pipelines map[string]PipelineHealth `json:"pipelines"`
}

// PipelineHealth describes the topology of a single running pipeline.
type PipelineHealth struct {
	Sources    []string `json:"sources"`
	Transforms []string `json:"transforms,omitempty"`
	Sinks      []string `json:"sinks"`
}

// GetHealthStatus returns detailed health information about the application.
func (a *Application) GetHealthStatus() HealthStatus {
	status := HealthStatus{
		Healthy:   a.IsHealthy(),
		Pipelines: make(map[string]PipelineHealth),
	}

	for id, pconf := range a.config.Pipelines {
		status.Pipelines[id] = PipelineHealth{
			Sources:    pconf.Sources,
			Transforms: pconf.Transforms,
			Sinks:      pconf.Sinks,
		}
	}

	return status
}
