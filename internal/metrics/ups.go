package metrics

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upsReachable = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nutify",
		Subsystem: "ups",
		Name:      "reachable",
		Help:      "Whether the UPS answered the last communication check (1) or not (0)",
	}, []string{"ups"})

	upsCommFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nutify",
		Subsystem: "ups",
		Name:      "comm_failures_total",
		Help:      "Total failed UPS communication checks",
	}, []string{"ups"})

	upsOnBattery = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nutify",
		Subsystem: "ups",
		Name:      "on_battery",
		Help:      "Whether the UPS reports on-battery status (1 when OB)",
	}, []string{"ups"})

	upsBatteryCharge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nutify",
		Subsystem: "ups",
		Name:      "battery_charge_percent",
		Help:      "UPS battery charge percentage",
	}, []string{"ups"})

	upsBatteryRuntime = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nutify",
		Subsystem: "ups",
		Name:      "battery_runtime_seconds",
		Help:      "UPS estimated battery runtime in seconds",
	}, []string{"ups"})

	upsLoad = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "nutify",
		Subsystem: "ups",
		Name:      "load_percent",
		Help:      "UPS output load percentage",
	}, []string{"ups"})

	// Local cache for API snapshot access.
	upsCache   = make(map[string]*UPSMetrics)
	upsCacheMu sync.RWMutex
)

// UPSMetrics holds the last observed values for a UPS.
type UPSMetrics struct {
	Status         string
	Reachable      bool
	BatteryCharge  float64
	BatteryRuntime float64
	Load           float64
	LastSeen       time.Time
}

// SetUPSReachable records the outcome of a UPS communication check.
func SetUPSReachable(ups string, reachable bool) {
	v := 0.0
	if reachable {
		v = 1.0
	} else {
		upsCommFailures.WithLabelValues(ups).Inc()
	}
	upsReachable.WithLabelValues(ups).Set(v)
	updateUPSCache(ups, func(m *UPSMetrics) {
		m.Reachable = reachable
		if reachable {
			m.LastSeen = time.Now()
		}
	})
}

// SetUPSStatus records the raw ups.status value ("OL", "OB LB", ...).
func SetUPSStatus(ups, status string) {
	onBattery := 0.0
	for _, tok := range strings.Fields(status) {
		if tok == "OB" {
			onBattery = 1.0
		}
	}
	upsOnBattery.WithLabelValues(ups).Set(onBattery)
	updateUPSCache(ups, func(m *UPSMetrics) { m.Status = status })
}

// RecordUPSVariables updates gauges from a variable dump fetched over the
// NUT protocol. Unparsable or absent values are skipped.
func RecordUPSVariables(ups string, vars map[string]string) {
	if charge, err := strconv.ParseFloat(vars["battery.charge"], 64); err == nil {
		upsBatteryCharge.WithLabelValues(ups).Set(charge)
		updateUPSCache(ups, func(m *UPSMetrics) { m.BatteryCharge = charge })
	}
	if runtime, err := strconv.ParseFloat(vars["battery.runtime"], 64); err == nil {
		upsBatteryRuntime.WithLabelValues(ups).Set(runtime)
		updateUPSCache(ups, func(m *UPSMetrics) { m.BatteryRuntime = runtime })
	}
	if load, err := strconv.ParseFloat(vars["ups.load"], 64); err == nil {
		upsLoad.WithLabelValues(ups).Set(load)
		updateUPSCache(ups, func(m *UPSMetrics) { m.Load = load })
	}
	if status, ok := vars["ups.status"]; ok {
		SetUPSStatus(ups, status)
	}
}

// GetUPSMetrics returns the last observed values for a UPS.
func GetUPSMetrics(ups string) *UPSMetrics {
	upsCacheMu.RLock()
	defer upsCacheMu.RUnlock()
	if m, ok := upsCache[ups]; ok {
		dup := *m
		return &dup
	}
	return nil
}

// DeleteUPSMetrics removes all metrics for a UPS.
func DeleteUPSMetrics(ups string) {
	upsReachable.DeleteLabelValues(ups)
	upsCommFailures.DeleteLabelValues(ups)
	upsOnBattery.DeleteLabelValues(ups)
	upsBatteryCharge.DeleteLabelValues(ups)
	upsBatteryRuntime.DeleteLabelValues(ups)
	upsLoad.DeleteLabelValues(ups)

	upsCacheMu.Lock()
	delete(upsCache, ups)
	upsCacheMu.Unlock()
}

func updateUPSCache(ups string, update func(*UPSMetrics)) {
	upsCacheMu.Lock()
	defer upsCacheMu.Unlock()
	m, ok := upsCache[ups]
	if !ok {
		m = &UPSMetrics{}
		upsCache[ups] = m
	}
	update(m)
}
