package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends the gatherer's metrics to a Prometheus Pushgateway under job.
// Short-lived commands use it since nothing scrapes them.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	return push.New(url, job).Gatherer(g).PushContext(ctx)
}
