package domain_test

import (
	"testing"
	"time"

	"stride/internal/modules/device/domain"
)

func intPtr(v int) *int              { return &v }
func timePtr(t time.Time) *time.Time { return &t }

func base() domain.Info {
	return domain.Info{
		State:    domain.StateConnected,
		DeviceID: "dev-1",
		Address:  "AA:BB:CC:DD:EE:FF",
		Name:     "Polar H10",
	}
}

func TestMergeRightBiasedOnIdentity(t *testing.T) {
	t.Parallel()
	other := domain.Info{
		State:    domain.StateConnecting,
		DeviceID: "dev-2",
		Address:  "11:22:33:44:55:66",
		Name:     "other",
	}
	merged := base().Merge(other)
	if merged.State != domain.StateConnecting || merged.DeviceID != "dev-2" ||
		merged.Address != "11:22:33:44:55:66" || merged.Name != "other" {
		t.Fatalf("right side must win identity fields: %+v", merged)
	}
}

func TestMergeUnionsFeaturesAndDIS(t *testing.T) {
	t.Parallel()
	left := base().WithFeature(domain.FeatureHR).WithDIS("fw", "1.0")
	right := base().WithFeature(domain.FeatureBattery).WithDIS("hw", "rev2")
	merged := left.Merge(right)
	for _, f := range []domain.Feature{domain.FeatureHR, domain.FeatureBattery} {
		if _, ok := merged.Features[f]; !ok {
			t.Fatalf("feature %s missing from union: %+v", f, merged.Features)
		}
	}
	if merged.DIS["fw"] != "1.0" || merged.DIS["hw"] != "rev2" {
		t.Fatalf("dis maps must union: %+v", merged.DIS)
	}
}

func TestMergeKeepsLaterLastConnectedAndFallsBackBattery(t *testing.T) {
	t.Parallel()
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	left := base()
	left.LastConnected = timePtr(t1)
	left.BatteryLevel = intPtr(33)
	right := base()
	right.LastConnected = timePtr(t2)

	merged := left.Merge(right)
	if merged.LastConnected == nil || !merged.LastConnected.Equal(t2) {
		t.Fatalf("expected later lastConnected %s, got %v", t2, merged.LastConnected)
	}
	if merged.BatteryLevel == nil || *merged.BatteryLevel != 33 {
		t.Fatalf("battery must fall back to left, got %v", merged.BatteryLevel)
	}

	// Order of the same two snapshots must not lose the later instant.
	reversed := right.Merge(left)
	if reversed.LastConnected == nil || !reversed.LastConnected.Equal(t2) {
		t.Fatalf("reversed merge lost later lastConnected: %v", reversed.LastConnected)
	}
}

func TestMergeNilTreatedAsEarliest(t *testing.T) {
	t.Parallel()
	t1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	left := base()
	left.LastConnected = timePtr(t1)
	merged := left.Merge(base())
	if merged.LastConnected == nil || !merged.LastConnected.Equal(t1) {
		t.Fatalf("nil right lastConnected must keep left, got %v", merged.LastConnected)
	}
}

func TestCanStreamHR(t *testing.T) {
	t.Parallel()
	connected := base().WithFeature(domain.FeatureHR)
	if !connected.CanStreamHR() {
		t.Fatal("connected with HR feature must stream")
	}
	if connected.Preparing() {
		t.Fatal("streaming device is not preparing")
	}

	negotiating := base()
	if negotiating.CanStreamHR() {
		t.Fatal("no HR feature means no streaming")
	}
	if !negotiating.Preparing() {
		t.Fatal("connected without HR feature is preparing")
	}

	idle := domain.FromStored("dev-1", "Polar H10", "", nil)
	if idle.Preparing() || idle.CanStreamHR() {
		t.Fatal("not-connected device is neither preparing nor streaming")
	}
}

func TestConnectionStateStatus(t *testing.T) {
	t.Parallel()
	none := domain.ConnectionState{}
	if none.Status() != domain.ConnectionInactive {
		t.Fatalf("empty set must be inactive, got %s", none.Status())
	}

	preparing := domain.ConnectionState{ConnectedDevices: []domain.Info{base()}}
	if preparing.Status() != domain.ConnectionPreparing {
		t.Fatalf("connected without HR must be preparing, got %s", preparing.Status())
	}

	ready := domain.ConnectionState{ConnectedDevices: []domain.Info{base(), base().WithFeature(domain.FeatureHR)}}
	if ready.Status() != domain.ConnectionReady {
		t.Fatalf("any streaming-capable device makes the set ready, got %s", ready.Status())
	}
}

func TestSearchStateAccumulates(t *testing.T) {
	t.Parallel()
	s := domain.SearchState{Status: domain.SearchAllDevices}
	s = s.WithDevice(domain.FromScan(domain.Advertisement{DeviceID: "a", Name: "A"}))
	s = s.WithDevice(domain.FromScan(domain.Advertisement{DeviceID: "b", Name: "B"}))
	s = s.WithDevice(domain.FromScan(domain.Advertisement{DeviceID: "a", Name: "A2"}))
	if len(s.Found) != 2 {
		t.Fatalf("expected 2 devices found, got %d", len(s.Found))
	}
	if s.Found["a"].Name != "A2" {
		t.Fatalf("rediscovery must refresh the entry, got %+v", s.Found["a"])
	}

	stopped := s.Stopped()
	if stopped.Status != domain.SearchNone || len(stopped.Found) != 2 {
		t.Fatalf("stop must preserve the found set: %+v", stopped)
	}
}
