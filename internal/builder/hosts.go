package builder

import (
	"fmt"

	"github.com/vk/ecflowgen/internal/config"
	"github.com/vk/ecflowgen/internal/host"
)

// newHost creates the host described by h.
func newHost(h *config.Host) (host.Host, error) {
	opts := []host.Option{host.WithName(h.Name)}
	if h.Hostname != "" {
		opts = append(opts, host.WithHostname(h.Hostname))
	}
	if h.User != "" {
		opts = append(opts, host.WithUser(h.User))
	}
	if h.Limit != nil {
		opts = append(opts, host.WithLimit(*h.Limit))
	}
	if h.EcflowPath != "" {
		opts = append(opts, host.WithEcflowPath(h.EcflowPath))
	}
	if len(h.Modules) > 0 {
		opts = append(opts, host.WithModules(h.Modules...))
	}
	if len(h.Variables) > 0 {
		opts = append(opts, host.WithExtraVariables(h.Variables))
	}

	switch h.Kind {
	case "", "local":
		return host.NewLocal(opts...), nil
	case "null":
		return host.NewNull(opts...), nil
	case "ssh":
		return host.NewSSH(h.Name, opts...), nil
	case "slurm":
		return host.NewSLURM(h.Name, opts...), nil
	case "pbs":
		return host.NewPBS(h.Name, opts...), nil
	case "troika":
		return host.NewTroika(h.Name, h.User, opts...), nil
	}
	return nil, fmt.Errorf("%s: unknown host kind %q for host %s", h.Source, h.Kind, h.Name)
}
