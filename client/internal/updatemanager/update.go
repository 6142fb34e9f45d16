package updatemanager

import "os"

// Notifier surfaces update related messages to the user
type Notifier interface {
	Notify(title, message string)
}

// Confirmer asks the user whether a found release should be installed
type Confirmer interface {
	Confirm(title, message string) bool
}

// Terminator ends the running application. It is called right after the
// updater has been launched and must not return control to the caller.
type Terminator interface {
	Terminate(code int)
}

// TerminatorFunc adapts a function to Terminator
type TerminatorFunc func(code int)

func (f TerminatorFunc) Terminate(code int) {
	f(code)
}

// ExitTerminator terminates the process with os.Exit
var ExitTerminator = TerminatorFunc(os.Exit)
