package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(keyStoreOpsTotal) }

var keyStoreOpsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "keystore_operations_total",
		Help: "Credential store loads and saves by backend and result.",
	},
	[]string{"store", "op", "result"}, // e.g., store="redis", op="save", result="ok"
)

func IncKeyStoreOp(store, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	keyStoreOpsTotal.WithLabelValues(norm(store), norm(op), result).Inc()
}
