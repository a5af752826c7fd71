package permissions

// RegisterProtocols declares the permissions owned by the protocol drivers.
// Drivers depend on core connection permissions, which is legal because
// cross-module dependencies are resolved when the registry is validated.
func RegisterProtocols(r *Registry) error {
	perms := []Permission{
		{ID: "protocol:ssh.connect", Module: "protocol:ssh", DependsOn: []string{"connection.launch"}, Description: "Open SSH sessions"},
		{ID: "protocol:ssh.port_forward", Module: "protocol:ssh", DependsOn: []string{"protocol:ssh.connect"}, Description: "Forward ports over SSH sessions"},
		{ID: "protocol:ssh.sftp", Module: "protocol:ssh", DependsOn: []string{"protocol:ssh.connect"}, Description: "Transfer files over SFTP"},

		{ID: "protocol:rdp.connect", Module: "protocol:rdp", DependsOn: []string{"connection.launch"}, Description: "Open RDP sessions"},
		{ID: "protocol:rdp.clipboard", Module: "protocol:rdp", DependsOn: []string{"protocol:rdp.connect"}, Description: "Use clipboard in RDP sessions"},

		{ID: "protocol:vnc.connect", Module: "protocol:vnc", DependsOn: []string{"connection.launch"}, Description: "Open VNC sessions"},

		{ID: "protocol:docker.connect", Module: "protocol:docker", DependsOn: []string{"connection.launch"}, Description: "Attach to Docker containers"},
		{ID: "protocol:docker.exec", Module: "protocol:docker", DependsOn: []string{"protocol:docker.connect"}, Description: "Execute commands in Docker containers"},

		{ID: "protocol:kubernetes.connect", Module: "protocol:kubernetes", DependsOn: []string{"connection.launch"}, Description: "Attach to Kubernetes pods"},
		{ID: "protocol:kubernetes.exec", Module: "protocol:kubernetes", DependsOn: []string{"protocol:kubernetes.connect"}, Description: "Execute commands in Kubernetes pods"},
	}
	for _, p := range perms {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}
