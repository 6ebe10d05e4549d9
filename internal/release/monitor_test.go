package release

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/libero/internal/common"
	"github.com/ternarybob/libero/internal/models"
	"github.com/ternarybob/libero/internal/testsupport"
)

func TestMonitorSweepMarksStaleProcessingFailed(t *testing.T) {
	store := testsupport.NewMemoryVehicleStorage()

	stale := eligibleVehicle("veh-stale")
	stale.DMVStatus = models.ReleaseStatusProcessing
	stale.UpdatedAt = time.Now().Add(-30 * time.Minute)

	fresh := eligibleVehicle("veh-fresh")
	fresh.DMVStatus = models.ReleaseStatusProcessing
	fresh.UpdatedAt = time.Now()

	pending := eligibleVehicle("veh-pending")
	pending.UpdatedAt = time.Now().Add(-30 * time.Minute)

	store.Seed(stale, fresh, pending)

	m := NewMonitor(store, &common.MonitorConfig{
		Enabled:    true,
		Schedule:   "*/5 * * * *",
		StaleAfter: common.Duration(15 * time.Minute),
	}, arbor.NewLogger())

	m.Sweep(context.Background())

	got, _ := store.GetVehicle(context.Background(), "veh-stale")
	if got.DMVStatus != models.ReleaseStatusFailed {
		t.Errorf("stale vehicle dmv_status = %s, want failed", got.DMVStatus)
	}

	got, _ = store.GetVehicle(context.Background(), "veh-fresh")
	if got.DMVStatus != models.ReleaseStatusProcessing {
		t.Errorf("fresh vehicle dmv_status = %s, want processing (untouched)", got.DMVStatus)
	}

	got, _ = store.GetVehicle(context.Background(), "veh-pending")
	if got.DMVStatus != models.ReleaseStatusPending {
		t.Errorf("pending vehicle dmv_status = %s, want pending (untouched)", got.DMVStatus)
	}
}

func TestMonitorDisabled(t *testing.T) {
	store := testsupport.NewMemoryVehicleStorage()
	m := NewMonitor(store, &common.MonitorConfig{Enabled: false}, arbor.NewLogger())

	if err := m.Start(); err != nil {
		t.Fatalf("Start returned error for disabled monitor: %v", err)
	}
	m.Stop() // must be safe without a started cron
}

func TestMonitorInvalidSchedule(t *testing.T) {
	store := testsupport.NewMemoryVehicleStorage()
	m := NewMonitor(store, &common.MonitorConfig{
		Enabled:  true,
		Schedule: "not a schedule",
	}, arbor.NewLogger())

	if err := m.Start(); err == nil {
		m.Stop()
		t.Fatal("expected error for invalid cron schedule")
	}
}
