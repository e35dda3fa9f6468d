package app

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registerRuntimeCollectorsOnce sync.Once

// metricsHandler serves the default registry, which also holds the channel
// metrics, after adding the Go runtime and process collectors to it.
func metricsHandler() (http.Handler, error) {
	var regErr error
	registerRuntimeCollectorsOnce.Do(func() {
		for name, c := range map[string]prometheus.Collector{
			"go":      collectors.NewGoCollector(),
			"process": collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		} {
			if err := prometheus.DefaultRegisterer.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					regErr = fmt.Errorf("metrics register %s collector: %w", name, err)
					return
				}
			}
		}
	})
	if regErr != nil {
		return nil, regErr
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux, nil
}
