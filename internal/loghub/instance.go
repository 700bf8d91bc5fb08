package loghub

import "time"

// InstanceStatus is the lifecycle state of a spawned game process session.
type InstanceStatus string

const (
	StatusRunning InstanceStatus = "running"
	StatusClosed  InstanceStatus = "closed"
	StatusCrashed InstanceStatus = "crashed"
	StatusStopped InstanceStatus = "stopped"
)

// Terminal reports whether the underlying process has ended. Logs of a
// terminal instance stay queryable until the operator reclaims them.
func (s InstanceStatus) Terminal() bool {
	switch s {
	case StatusClosed, StatusCrashed, StatusStopped:
		return true
	}
	return false
}

// GameInstance describes one externally-spawned game process session. The id
// is assigned by the launcher collaborator; status and last activity are
// mutated by the collaborator through UpdateInstance as the process runs.
type GameInstance struct {
	ID           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	Status       InstanceStatus `json:"status"`
	LastActivity time.Time      `json:"lastActivity"`
}

// InstanceUpdate is a partial GameInstance patch. Nil fields are left
// untouched by UpdateInstance.
type InstanceUpdate struct {
	Name         *string
	Status       *InstanceStatus
	LastActivity *time.Time
}

// instanceLogs pairs an instance record with its two log sub-streams:
// launcher-originated messages about the instance, and output emitted by the
// game process itself. Created at registration, destroyed at reclamation;
// it exists if and only if the owning instance is currently registered.
type instanceLogs struct {
	info     GameInstance
	launcher *entryRing
	game     *entryRing
}
