package release

// Actor identifies who produced a build.
type Actor struct {
	// Hostname is the machine the build ran on.
	Hostname string `yaml:"hostname"`
	// Username is the system user that ran the build.
	Username string `yaml:"username"`
}

// Clone returns a copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}
