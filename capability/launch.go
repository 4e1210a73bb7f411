package capability

// LaunchSpec describes how to start a provider subprocess: a command with
// arguments, extra environment entries (KEY=VALUE) and an optional working
// directory. It generalizes a local process or containerized service launch.
type LaunchSpec struct {
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args,omitempty" yaml:"args,omitempty"`
	Env     []string `json:"env,omitempty" yaml:"env,omitempty"`
	Dir     string   `json:"dir,omitempty" yaml:"dir,omitempty"`
}
