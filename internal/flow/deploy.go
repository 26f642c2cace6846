package flow

import (
	"context"

	"github.com/vk/ecflowgen/internal/ctxlog"
	"github.com/vk/ecflowgen/internal/deploy"
)

// DeployPaths returns the locations deployment works with for the suite.
// Unset paths fall back to ECF_HOME, itself "." when unset.
func (n *Node) DeployPaths() deploy.Paths {
	home, _ := n.LookupVariableValue("ECF_HOME", ".")
	p := deploy.Paths{Home: home, Files: home, Include: home}
	if files, err := n.FilesPath(); err == nil {
		p.Files = files
	}
	if include, err := n.IncludePath(); err == nil {
		p.Include = include
	}
	p.Out, _ = n.LookupVariableValue("ECF_OUT", home)
	return p
}

// DeploySuite generates the script of every task and the manual of every
// family below the suite n, and writes them with their headers to sink.
func (n *Node) DeploySuite(ctx context.Context, sink deploy.Sink, opts ...deploy.Option) (*deploy.Deployer, error) {
	if n.extern {
		invariant("Attempting to deploy extern node not permitted")
	}
	if n.kind != KindSuite {
		return nil, generateErrorf("Cannot deploy %s %s, only suites are deployed", n.kind, n.FullName())
	}
	log := ctxlog.FromContext(ctx)
	d := deploy.New(sink, n.DeployPaths(), opts...)

	tasks := n.Tasks()
	for _, t := range tasks {
		lines, includes, err := t.GenerateScript()
		if err != nil {
			return nil, err
		}
		if err := d.DeployTask(ctx, t.DeployPath(), lines, includes); err != nil {
			return nil, err
		}
	}

	manuals := 0
	for _, f := range n.Families() {
		m, ok := f.Manual()
		if !ok {
			continue
		}
		stub := m.Stub()
		if len(stub) == 0 {
			continue
		}
		if err := d.DeployManual(ctx, f.ManualPath(), stub); err != nil {
			return nil, err
		}
		manuals++
	}

	if err := d.DeployHeaders(ctx); err != nil {
		return nil, err
	}
	log.Debug("Deployed suite.", "suite", n.FullName(), "tasks", len(tasks), "manuals", manuals)
	return d, nil
}
