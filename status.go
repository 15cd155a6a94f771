package enginesup

// ServerStatus is the public, rate-limited view of the engine's state.
//
// Invariants: NumberOfTasks == len(Tasks); Stopped implies !IsRunning and
// no tasks. Use StatusFromSnapshot and StoppedStatus to construct values.
type ServerStatus struct {
	Stopped       bool   `json:"stopped"`
	IsRunning     bool   `json:"is_running"`
	NumberOfTasks int    `json:"number_of_tasks"`
	Tasks         []Task `json:"tasks"`
}

// StatusFromSnapshot converts a raw task snapshot into a live status.
// The task slice is copied so later engine reuse cannot alias it.
func StatusFromSnapshot(s TaskSnapshot) ServerStatus {
	tasks := make([]Task, len(s.Tasks))
	copy(tasks, s.Tasks)
	return ServerStatus{
		IsRunning:     s.IsRunning,
		NumberOfTasks: len(tasks),
		Tasks:         tasks,
	}
}

// StoppedStatus returns the terminal status reported once the engine is no
// longer alive.
func StoppedStatus() ServerStatus {
	return ServerStatus{
		Stopped: true,
		Tasks:   []Task{},
	}
}

// Idle reports whether no work is outstanding.
func (s ServerStatus) Idle() bool {
	return s.NumberOfTasks == 0
}
