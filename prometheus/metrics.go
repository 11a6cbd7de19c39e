package prometheus

import (
	"sync"
	"time"

	"storefront/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   *prometheus.CounterVec

	// Store metrics
	StoreOperationDuration *prometheus.HistogramVec
	StoreLockWait          *prometheus.HistogramVec

	// Business metrics
	CatalogOperationsCounter *prometheus.CounterVec
	OrderOperationsCounter   *prometheus.CounterVec
	PaymentsCounter          *prometheus.CounterVec
	ProductInventoryGauge    *prometheus.GaugeVec
)

// InitMetrics registers every metric with the default registry using the
// configured prefix
func InitMetrics(config *config.Config) *Recorder {
	return Register(prometheus.DefaultRegisterer, config.Metrics.Prefix)
}

// Register creates every metric under prefix on reg and returns a Recorder
// bound to the store and business metrics just created
func Register(reg prometheus.Registerer, prefix string) *Recorder {
	factory := promauto.With(reg)

	HttpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	AuthAttemptsCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_attempts_total",
			Help: "Total number of login attempts",
		},
	)

	AuthSuccessCounter = factory.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_auth_success_total",
			Help: "Total number of successful logins",
		},
	)

	AuthErrorsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors by reason",
		},
		[]string{"reason"},
	)

	StoreOperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_store_operation_duration_seconds",
			Help:    "Duration of collection store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	StoreLockWait = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_store_lock_wait_seconds",
			Help:    "Time spent waiting for a collection lock",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"collection"},
	)

	CatalogOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_catalog_operations_total",
			Help: "Total number of catalog, user and cart operations",
		},
		[]string{"entity", "operation"},
	)

	OrderOperationsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_orders_total",
			Help: "Total number of order operations",
		},
		[]string{"operation"},
	)

	PaymentsCounter = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_payments_total",
			Help: "Total number of payment attempts by outcome",
		},
		[]string{"outcome"},
	)

	ProductInventoryGauge = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_product_inventory",
			Help: "Current inventory level for products",
		},
		[]string{"product_id", "product_name"},
	)

	return &Recorder{
		storeOps:  StoreOperationDuration,
		lockWait:  StoreLockWait,
		catalog:   CatalogOperationsCounter,
		orders:    OrderOperationsCounter,
		payments:  PaymentsCounter,
		inventory: ProductInventoryGauge,
	}
}

// RecordAuthAttempt counts a login attempt
func RecordAuthAttempt() {
	AuthAttemptsCounter.Inc()
}

// RecordAuthSuccess counts a successful login
func RecordAuthSuccess() {
	AuthSuccessCounter.Inc()
}

// RecordAuthError counts an authentication failure
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// Recorder feeds store and service events into the metrics it was
// registered with. Obtain one from Register or InitMetrics.
type Recorder struct {
	storeOps  *prometheus.HistogramVec
	lockWait  *prometheus.HistogramVec
	catalog   *prometheus.CounterVec
	orders    *prometheus.CounterVec
	payments  *prometheus.CounterVec
	inventory *prometheus.GaugeVec

	// serializes replacing a product's inventory series
	inventoryMu sync.Mutex
}

func resultStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (r *Recorder) ObserveCommit(_ []string, d time.Duration, err error) {
	r.storeOps.WithLabelValues("commit", resultStatus(err)).Observe(d.Seconds())
}

// ObserveRecover times the startup replay of interrupted commits
func (r *Recorder) ObserveRecover(d time.Duration, err error) {
	r.storeOps.WithLabelValues("recover", resultStatus(err)).Observe(d.Seconds())
}

func (r *Recorder) ObserveLockWait(collection string, d time.Duration) {
	r.lockWait.WithLabelValues(collection).Observe(d.Seconds())
}

func (r *Recorder) RecordOperation(entity, operation string) {
	if entity == "order" {
		r.orders.WithLabelValues(operation).Inc()
		return
	}
	r.catalog.WithLabelValues(entity, operation).Inc()
}

func (r *Recorder) RecordPayment(outcome string) {
	r.payments.WithLabelValues(outcome).Inc()
}

// UpdateInventory sets the stock of a product. A product has one series; a
// renamed product drops the series carrying its old name.
func (r *Recorder) UpdateInventory(productID, productName string, quantity int) {
	r.inventoryMu.Lock()
	defer r.inventoryMu.Unlock()
	r.inventory.DeletePartialMatch(prometheus.Labels{"product_id": productID})
	r.inventory.WithLabelValues(productID, productName).Set(float64(quantity))
}

// ForgetProduct drops the inventory series of a deleted product
func (r *Recorder) ForgetProduct(productID string) {
	r.inventoryMu.Lock()
	defer r.inventoryMu.Unlock()
	r.inventory.DeletePartialMatch(prometheus.Labels{"product_id": productID})
}
