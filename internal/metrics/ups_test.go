package metrics

import (
	"sync"
	"testing"
)

func TestUPSMetricsCache(t *testing.T) {
	ups := "test-ups-1"

	// Clean state
	DeleteUPSMetrics(ups)

	// Initially should return nil
	if m := GetUPSMetrics(ups); m != nil {
		t.Error("expected nil for unknown ups")
	}

	SetUPSReachable(ups, true)
	SetUPSStatus(ups, "OB LB")
	RecordUPSVariables(ups, map[string]string{
		"battery.charge":  "85",
		"battery.runtime": "1200",
		"ups.load":        "23.5",
	})

	m := GetUPSMetrics(ups)
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	if !m.Reachable {
		t.Error("Reachable = false, want true")
	}
	if m.Status != "OB LB" {
		t.Errorf("Status = %q, want \"OB LB\"", m.Status)
	}
	if m.BatteryCharge != 85 {
		t.Errorf("BatteryCharge = %v, want 85", m.BatteryCharge)
	}
	if m.BatteryRuntime != 1200 {
		t.Errorf("BatteryRuntime = %v, want 1200", m.BatteryRuntime)
	}
	if m.Load != 23.5 {
		t.Errorf("Load = %v, want 23.5", m.Load)
	}
	if m.LastSeen.IsZero() {
		t.Error("LastSeen should be set after a successful check")
	}

	// Verify returned copy is independent
	m.BatteryCharge = 999
	m2 := GetUPSMetrics(ups)
	if m2.BatteryCharge != 85 {
		t.Errorf("cache was modified, BatteryCharge = %v, want 85", m2.BatteryCharge)
	}

	DeleteUPSMetrics(ups)
	if deleted := GetUPSMetrics(ups); deleted != nil {
		t.Error("expected nil after delete")
	}
}

func TestRecordUPSVariablesSkipsUnparsable(t *testing.T) {
	ups := "test-ups-2"
	DeleteUPSMetrics(ups)

	RecordUPSVariables(ups, map[string]string{
		"battery.charge": "90",
		"ups.load":       "not-a-number",
	})

	m := GetUPSMetrics(ups)
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	if m.BatteryCharge != 90 {
		t.Errorf("BatteryCharge = %v, want 90", m.BatteryCharge)
	}
	if m.Load != 0 {
		t.Errorf("Load = %v, want 0 (unparsable value skipped)", m.Load)
	}

	DeleteUPSMetrics(ups)
}

func TestUPSReachableFlipDoesNotClearLastSeen(t *testing.T) {
	ups := "test-ups-3"
	DeleteUPSMetrics(ups)

	SetUPSReachable(ups, true)
	first := GetUPSMetrics(ups).LastSeen

	SetUPSReachable(ups, false)
	m := GetUPSMetrics(ups)
	if m.Reachable {
		t.Error("Reachable = true, want false")
	}
	if !m.LastSeen.Equal(first) {
		t.Error("LastSeen should be preserved across a failed check")
	}

	DeleteUPSMetrics(ups)
}

func TestUPSMetricsConcurrency(t *testing.T) {
	ups := "concurrent-ups"
	DeleteUPSMetrics(ups)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()
			SetUPSReachable(ups, val%2 == 0)
			RecordUPSVariables(ups, map[string]string{"battery.charge": "50"})
			_ = GetUPSMetrics(ups)
		}(i)
	}
	wg.Wait()

	// Should not panic, final value is indeterminate
	if m := GetUPSMetrics(ups); m == nil {
		t.Error("expected non-nil metrics after concurrent access")
	}

	DeleteUPSMetrics(ups)
}
