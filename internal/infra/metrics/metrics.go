package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "menu_deliveries_total",
			Help: "Finished scheduled deliveries by outcome (ok/empty/no_mensa/transient/permanent/fatal).",
		},
		[]string{"result"},
	)

	deliveryRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "menu_delivery_retries_total",
			Help: "Retry attempts against the menu backend during deliveries.",
		},
	)

	mensaRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mensa_requests_total",
			Help: "Requests to the menu backend by endpoint and cache outcome.",
		},
		[]string{"endpoint", "cache"},
	)

	subscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscribers",
			Help: "Currently scheduled subscription jobs.",
		},
	)

	broadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcasts_total",
			Help: "Broadcast messages by send outcome.",
		},
		[]string{"success"},
	)
)

func init() {
	register(deliveriesTotal, deliveryRetriesTotal, mensaRequestsTotal, subscribers, broadcastsTotal)
}

func IncDelivery(result string) { deliveriesTotal.WithLabelValues(result).Inc() }

func IncDeliveryRetry() { deliveryRetriesTotal.Inc() }

func IncMensaRequest(endpoint string, cacheHit bool) {
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	mensaRequestsTotal.WithLabelValues(endpoint, cache).Inc()
}

func SetSubscribers(n int) { subscribers.Set(float64(n)) }

func IncBroadcast(success bool) {
	broadcastsTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}
