package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "solocast_active_sessions",
		Help: "Number of open signaling sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solocast_sessions_total",
		Help: "Total number of signaling sessions accepted",
	})

	SignalingMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solocast_signaling_messages_total",
		Help: "Total signaling messages",
	}, []string{"type", "direction"}) // direction: "in" | "out"

	RequestsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solocast_requests_dropped_total",
		Help: "Signaling requests dropped without a response",
	}, []string{"reason"}) // "missing_transport" | "unknown_producer" | "bad_payload" | "engine_failure"

	TransportsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "solocast_transports_created_total",
		Help: "Total client transports created",
	})

	ConsumersCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solocast_consumers_created_total",
		Help: "Total consumers created",
	}, []string{"kind"})

	ResourceCloseFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solocast_resource_close_failures_total",
		Help: "Resource close calls that returned an error during teardown",
	}, []string{"resource"}) // "consumer" | "transport" | "producer"

	RTPPacketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solocast_rtp_packets_total",
		Help: "RTP packets accepted on the ingest pathways",
	}, []string{"kind"})

	RTPBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solocast_rtp_bytes_total",
		Help: "RTP bytes accepted on the ingest pathways",
	}, []string{"kind"})

	RTPPacketsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solocast_rtp_packets_dropped_total",
		Help: "Ingest RTP packets dropped before reaching the track",
	}, []string{"kind", "reason"}) // "malformed" | "foreign_source" | "write_failed"

	RTCPPacketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solocast_rtcp_packets_total",
		Help: "RTCP packets received on the ingest control sockets",
	}, []string{"kind"})
)
