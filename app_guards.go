package main

import (
	"errors"

	"kable/internal/launcher"
)

func (a *App) requireLauncher() (*launcher.Manager, error) {
	if a.launcher == nil {
		return nil, errors.New("launcher is unavailable")
	}
	return a.launcher, nil
}
