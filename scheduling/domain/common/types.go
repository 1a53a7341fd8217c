package common

// PlatformResult is the outcome of publishing to one platform.
type PlatformResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// DispatchOutcome aggregates every platform attempt for one post.
type DispatchOutcome struct {
	Success bool                      `json:"success"`
	Results map[string]PlatformResult `json:"results"`
}

func (o DispatchOutcome) SuccessCount() int {
	n := 0
	for _, r := range o.Results {
		if r.OK {
			n++
		}
	}
	return n
}

// SchedulerStatus is a point-in-time view of the daemon.
type SchedulerStatus struct {
	Running       bool   `json:"running"`
	Ticking       bool   `json:"ticking"`
	Interval      string `json:"interval"`
	PendingCount  int    `json:"pending_count"`
	LastTickAt    string `json:"last_tick_at,omitempty"`
	LastTickError string `json:"last_tick_error,omitempty"`
}
