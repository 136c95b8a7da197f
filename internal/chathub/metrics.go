package chathub

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics defines our Prometheus metrics
type Metrics struct {
	Connections        prometheus.Gauge
	QueueLength        prometheus.Gauge
	OpenRooms          prometheus.Gauge
	RoomsCreated       prometheus.Counter
	RoomsClosed        *prometheus.CounterVec
	Relayed            *prometheus.CounterVec
	RelayRejected      *prometheus.CounterVec
	PeerLeftSuppressed prometheus.Counter
}

// NewMetrics registers the hub metrics on reg. A nil reg yields unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "fluxe_connections",
			Help: "Currently connected clients.",
		}),
		QueueLength: f.NewGauge(prometheus.GaugeOpts{
			Name: "fluxe_queue_length",
			Help: "Clients waiting for a partner.",
		}),
		OpenRooms: f.NewGauge(prometheus.GaugeOpts{
			Name: "fluxe_open_rooms",
			Help: "Rooms currently open in this process.",
		}),
		RoomsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "fluxe_rooms_created_total",
			Help: "Rooms created by pairing.",
		}),
		RoomsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fluxe_rooms_closed_total",
			Help: "Rooms closed, by leave trigger.",
		}, []string{"trigger"}),
		Relayed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fluxe_relayed_total",
			Help: "Messages relayed, by kind.",
		}, []string{"kind"}),
		RelayRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fluxe_relay_rejected_total",
			Help: "Relay attempts rejected because the target was not a live peer.",
		}, []string{"kind"}),
		PeerLeftSuppressed: f.NewCounter(prometheus.CounterOpts{
			Name: "fluxe_peer_left_suppressed_total",
			Help: "Leave events suppressed because the room was already resolved.",
		}),
	}
}
