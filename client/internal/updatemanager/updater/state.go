package updater

import "errors"

// State is a step of the replace protocol
type State int

const (
	StateIdle State = iota
	StateWaitForRelease
	StateBackup
	StateReplace
	StateCleanup
	StateRelaunch
	StateDone
	StateRollback
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateWaitForRelease:
		return "WaitForRelease"
	case StateBackup:
		return "Backup"
	case StateReplace:
		return "Replace"
	case StateCleanup:
		return "Cleanup"
	case StateRelaunch:
		return "Relaunch"
	case StateDone:
		return "Done"
	case StateRollback:
		return "Rollback"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

const (
	ExitOK             = 0
	ExitFailed         = 1
	ExitUsage          = 2
	ExitRollbackFailed = 3
)

var (
	// ErrPreDestructive means the target was never touched
	ErrPreDestructive = errors.New("update aborted before touching the executable")
	// ErrRolledBack means the replace failed and the previous executable was restored
	ErrRolledBack = errors.New("update failed, previous executable restored")
	// ErrRollbackFailed means neither the new nor the previous executable is in place
	ErrRollbackFailed = errors.New("update failed and the previous executable could not be restored")
)

// ExitCode maps the outcome of Run to the process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrRollbackFailed):
		return ExitRollbackFailed
	default:
		return ExitFailed
	}
}
