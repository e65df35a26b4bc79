package metrics

import "github.com/kilianp07/collabsched/core/factory"

// Config defines settings for metrics sinks. Each entry names a registered
// sink type ("nop", "prometheus", "influx") and its settings.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
