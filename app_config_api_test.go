package main

import (
	"os"
	"testing"

	"kable/internal/config"
	"kable/internal/testutil"
)

func TestSaveConfigPersistsAndAppliesToHub(t *testing.T) {
	recorder := stubRuntimeEvents(t)
	app := newTestApp(t)

	cfg := config.DefaultConfig()
	cfg.Logging.MaxGlobalEntries = 1234
	cfg.Logging.DedupeEnabled = testutil.Ptr(false)

	if err := app.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	if _, err := os.Stat(app.configPath); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	hubCfg := app.hub.ConfigSnapshot()
	if hubCfg.MaxGlobalEntries != 1234 {
		t.Errorf("hub MaxGlobalEntries = %d, want 1234", hubCfg.MaxGlobalEntries)
	}
	if hubCfg.DedupeEnabled {
		t.Error("hub DedupeEnabled = true, want false after save")
	}

	event, ok := recorder.last("kable:config-updated")
	if !ok {
		t.Fatal("kable:config-updated not emitted")
	}
	updated, ok := event.payload.(configUpdatedEvent)
	if !ok {
		t.Fatalf("config-updated payload type = %T, want configUpdatedEvent", event.payload)
	}
	if updated.Version != 1 {
		t.Errorf("event version = %d, want 1", updated.Version)
	}
	if updated.Config.Logging.MaxGlobalEntries != 1234 {
		t.Errorf("event config MaxGlobalEntries = %d, want 1234", updated.Config.Logging.MaxGlobalEntries)
	}
}

func TestSaveConfigBumpsVersionPerSave(t *testing.T) {
	recorder := stubRuntimeEvents(t)
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		if err := app.SaveConfig(config.DefaultConfig()); err != nil {
			t.Fatalf("SaveConfig() #%d error = %v", i+1, err)
		}
	}

	event, ok := recorder.last("kable:config-updated")
	if !ok {
		t.Fatal("kable:config-updated not emitted")
	}
	if got := event.payload.(configUpdatedEvent).Version; got != 3 {
		t.Fatalf("last event version = %d, want 3", got)
	}
}

func TestSaveConfigRejectsEmptyPath(t *testing.T) {
	stubRuntimeEvents(t)
	app := newTestApp(t)
	app.configPath = ""

	if err := app.SaveConfig(config.DefaultConfig()); err == nil {
		t.Fatal("SaveConfig() expected error for empty config path")
	}
	if got := app.configEventVersion.Load(); got != 0 {
		t.Fatalf("event version bumped to %d on failed save, want 0", got)
	}
}

func TestApplyRuntimeHubConfigRejectsStaleVersion(t *testing.T) {
	app := newTestApp(t)

	fresh := config.DefaultConfig()
	fresh.Logging.MaxGlobalEntries = 777
	app.applyRuntimeHubConfig(configUpdatedEvent{Config: fresh, Version: 2})

	stale := config.DefaultConfig()
	stale.Logging.MaxGlobalEntries = 111
	app.applyRuntimeHubConfig(configUpdatedEvent{Config: stale, Version: 1})

	if got := app.hub.ConfigSnapshot().MaxGlobalEntries; got != 777 {
		t.Fatalf("hub MaxGlobalEntries = %d, want 777 (stale version must be rejected)", got)
	}
}

func TestHandleConfigFileChangeAppliesAndEmits(t *testing.T) {
	recorder := stubRuntimeEvents(t)
	app := newTestApp(t)

	cfg := config.DefaultConfig()
	cfg.Logging.DedupeWindowSize = 7
	app.handleConfigFileChange(cfg)

	if got := app.hub.ConfigSnapshot().DedupeWindowSize; got != 7 {
		t.Fatalf("hub DedupeWindowSize = %d, want 7 after external edit", got)
	}
	if got := app.getConfigSnapshot().Logging.DedupeWindowSize; got != 7 {
		t.Fatalf("app config DedupeWindowSize = %d, want 7", got)
	}
	if recorder.count("kable:config-updated") != 1 {
		t.Fatal("kable:config-updated not emitted for external edit")
	}
}

func TestGetConfigAndFlushWarningsEmitsPendingWarnings(t *testing.T) {
	recorder := stubRuntimeEvents(t)
	app := newTestApp(t)

	app.addPendingConfigLoadWarning("first problem")
	app.addPendingConfigLoadWarning("  ")
	app.addPendingConfigLoadWarning("second problem")

	_ = app.GetConfigAndFlushWarnings()

	event, ok := recorder.last("kable:config-load-failed")
	if !ok {
		t.Fatal("kable:config-load-failed not emitted")
	}
	payload := event.payload.(map[string]string)
	if payload["message"] != "first problem\nsecond problem" {
		t.Fatalf("warning message = %q, want joined non-empty warnings", payload["message"])
	}

	// Warnings are consumed on flush; a second call emits nothing new.
	_ = app.GetConfigAndFlushWarnings()
	if got := recorder.count("kable:config-load-failed"); got != 1 {
		t.Fatalf("config-load-failed emissions = %d, want 1", got)
	}
}
