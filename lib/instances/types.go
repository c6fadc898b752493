package instances

import "time"

// Status is the lifecycle state of an instance.
type Status string

const (
	StatusPending    Status = "pending"    // accepted, container not created yet
	StatusRunning    Status = "running"    // container running
	StatusStopped    Status = "stopped"    // container exists, not running
	StatusTerminated Status = "terminated" // final
)

// Resources is the descriptive resource spec shown to users. Values are
// validated as sizes but never enforced.
type Resources struct {
	CPU     string `json:"cpu,omitempty"`
	Memory  string `json:"memory,omitempty"`
	Storage string `json:"storage,omitempty"`
}

// Instance is one provisioned environment.
type Instance struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Name          string     `json:"name"`
	TemplateID    string     `json:"template_id"`
	Status        Status     `json:"status"`
	ContainerRef  string     `json:"container_ref,omitempty"`
	ContainerName string     `json:"container_name"`
	CreatedAt     time.Time  `json:"created_at"`
	LastStartedAt *time.Time `json:"last_started_at,omitempty"`
	AccessURL     string     `json:"access_url,omitempty"`
	Ports         []int      `json:"ports"`
	Resources     Resources  `json:"resources"`
}

// CreateInstanceRequest is the input to CreateInstance.
type CreateInstanceRequest struct {
	OwnerID    string
	TemplateID string
	// Name defaults to the template's display name.
	Name      string
	Resources Resources
}

func isTerminalStatus(s Status) bool {
	return s == StatusTerminated
}

func runStatus(running bool) Status {
	if running {
		return StatusRunning
	}
	return StatusStopped
}
