package mqtt

import (
	"github.com/kilianp07/acodispatch/core/factory"
	coremetrics "github.com/kilianp07/acodispatch/core/metrics"
)

// init registers the "mqtt" metrics sink. It connects its own client and
// only publishes; breakdown commands are handled by the service client.
func init() {
	_ = coremetrics.RegisterMetricsSink("mqtt", func(conf map[string]any) (coremetrics.MetricsSink, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		cli, err := NewPahoClient(c)
		if err != nil {
			return nil, err
		}
		return NewStatePublisher(cli, cli.Config()), nil
	})
}
