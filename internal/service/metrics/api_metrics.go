package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    EndpointLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "flarescope",
            Subsystem: "api",
            Name:      "latency_seconds",
            Help:      "Latency of analysis endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    EndpointErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "flarescope",
            Subsystem: "api",
            Name:      "errors_total",
            Help:      "Errors by analysis endpoint",
        },
        []string{"endpoint"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(EndpointLatency, EndpointErrors)
    })
}
