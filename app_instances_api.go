package main

import (
	"kable/internal/launcher"
	"kable/internal/loghub"
)

// LaunchRequest is the Wails-bound payload for starting a game instance.
type LaunchRequest struct {
	Name     string   `json:"name"`
	JavaPath string   `json:"java_path,omitempty"`
	Args     []string `json:"args,omitempty"`
	Dir      string   `json:"dir,omitempty"`
}

// LaunchInstance starts a game process and returns the registered instance.
// JavaPath and Dir fall back to the configured defaults when empty.
func (a *App) LaunchInstance(req LaunchRequest) (loghub.GameInstance, error) {
	mgr, err := a.requireLauncher()
	if err != nil {
		return loghub.GameInstance{}, err
	}

	cfg := a.getConfigSnapshot()
	spec := launcher.LaunchSpec{
		Name:     req.Name,
		JavaPath: req.JavaPath,
		Args:     req.Args,
		Dir:      req.Dir,
	}
	if spec.JavaPath == "" {
		spec.JavaPath = cfg.JavaPath
	}
	if spec.Dir == "" {
		spec.Dir = cfg.GameDir
	}

	inst, err := mgr.Launch(spec)
	if err != nil {
		return loghub.GameInstance{}, err
	}
	a.emitInstancesUpdated()
	return inst, nil
}

// StopInstance kills the process for id. The instance record stays in the
// hub with status "stopped" until removed or swept.
func (a *App) StopInstance(id string) error {
	mgr, err := a.requireLauncher()
	if err != nil {
		return err
	}
	if err := mgr.Stop(id); err != nil {
		return err
	}
	a.emitInstancesUpdated()
	return nil
}

// IsInstanceRunning reports whether the process for id is still alive.
func (a *App) IsInstanceRunning(id string) bool {
	mgr, err := a.requireLauncher()
	if err != nil {
		return false
	}
	return mgr.Running(id)
}
