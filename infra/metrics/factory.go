package metrics

import (
	"fmt"

	"github.com/kilianp07/collabsched/core/factory"
	coremetrics "github.com/kilianp07/collabsched/core/metrics"
)

// PromConfig is the conf block of a "prometheus" sink.
type PromConfig struct {
	// TextfilePath receives the registry in text format on Flush, for the
	// node exporter textfile collector. Empty keeps metrics in memory.
	TextfilePath string `json:"textfile_path"`
}

// InfluxConfig is the conf block of an "influx" sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func (c InfluxConfig) validate() error {
	if c.URL == "" || c.Bucket == "" {
		return fmt.Errorf("influx sink needs url and bucket")
	}
	return nil
}

func newProm(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c PromConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewPromSink(c.TextfilePath)
}

func newInflux(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}

func init() {
	for name, f := range map[string]factory.Factory[coremetrics.MetricsSink]{
		"nop":        func(map[string]any) (coremetrics.MetricsSink, error) { return coremetrics.NopSink{}, nil },
		"prometheus": newProm,
		"influx":     newInflux,
	} {
		if err := coremetrics.RegisterMetricsSink(name, f); err != nil {
			panic(err)
		}
	}
}
