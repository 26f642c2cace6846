package host

import (
	"fmt"
	"sort"
	"strings"
)

// Null is a host invisible to ecFlow. Tasks cannot run under it.
type Null struct {
	base
}

// NewNull creates the null host.
func NewNull(opts ...Option) *Null {
	return &Null{base{withCurrentUser(newConfig("null", 0, opts))}}
}

func (n *Null) JobCmd() string { return "" }
func (n *Null) KillCmd() string { return "" }
func (n *Null) RunCommand(cmd string) string { return cmd }

func (n *Null) HostPreamble([]string) ([]string, error) { return nil, ErrNullHost }
func (n *Null) Postamble() ([]string, error) { return nil, ErrNullHost }

// Local runs jobs directly on the ecFlow server machine.
type Local struct {
	base
}

// NewLocal creates a local host named "localhost" with a limit of 20
// concurrent tasks.
func NewLocal(opts ...Option) *Local {
	return &Local{base{withCurrentUser(newConfig("localhost", 20, opts))}}
}

// NewDefault is the host suites use when none is given.
func NewDefault(opts ...Option) *Local {
	return NewLocal(append([]Option{WithName("default")}, opts...)...)
}

func (l *Local) JobCmd() string {
	return wrapJob(l.cfg.EcflowPath, "%ECF_JOB% ")
}

func (l *Local) KillCmd() string { return "pkill -15 -P %ECF_RID%" }
func (l *Local) RunCommand(cmd string) string { return cmd }

func withCurrentUser(c *Config) *Config {
	if c.User == "" {
		c.User = currentUser()
	}
	return c
}

// wrapJob runs body in the background, reporting completion or abortion to
// the server.
func wrapJob(ecflowPath, body string) string {
	return "bash -c '" +
		exportEcfVariables +
		fmt.Sprintf("export PATH=%s:$PATH; ", ecflowPath) +
		`ecflow_client --init="$$" && ` +
		body +
		"&& ecflow_client --complete " +
		"|| ecflow_client --abort " +
		"' 1> %ECF_JOBOUT% 2>&1 &"
}

// SSH runs jobs on a remote machine over ssh.
type SSH struct {
	base
}

// NewSSH creates an ssh host. name may be given as user@host, and the
// indirect host as user@host as well.
func NewSSH(name string, opts ...Option) *SSH {
	cfg := newConfig(name, 0, opts)
	if cfg.User == "" {
		if u, h, ok := strings.Cut(cfg.Name, "@"); ok {
			cfg.User, cfg.Name = u, h
			if cfg.Hostname == name {
				cfg.Hostname = h
			}
		} else {
			cfg.User = currentUser()
		}
	}
	if cfg.IndirectHost != "" && cfg.IndirectUser == "" {
		if u, h, ok := strings.Cut(cfg.IndirectHost, "@"); ok {
			cfg.IndirectUser, cfg.IndirectHost = u, h
		} else {
			cfg.IndirectUser = cfg.User
		}
	}
	return &SSH{base{cfg}}
}

func (s *SSH) JobCmd() string {
	c := s.cfg
	body := fmt.Sprintf("%s %s@%s bash -s < %%ECF_JOB%%", SSHCommand, c.User, c.Hostname)
	if c.IndirectHost != "" {
		body = fmt.Sprintf("%s %s@%s %s %s@%s bash -s < %%ECF_JOB%%",
			SSHCommand, c.IndirectUser, c.IndirectHost, SSHCommand, c.User, c.Hostname)
	}
	return wrapJob(c.EcflowPath, body)
}

func (s *SSH) KillCmd() string { return "pkill -15 -P %ECF_RID%" }

func (s *SSH) RunCommand(cmd string) string {
	c := s.cfg
	if c.IndirectHost != "" {
		return fmt.Sprintf("ssh -o StrictHostKeyChecking=no %s@%s ssh -o StrictHostKeyChecking=no %s@%s %s",
			c.IndirectUser, c.IndirectHost, c.User, c.Hostname, cmd)
	}
	return fmt.Sprintf("ssh -o StrictHostKeyChecking=no %s@%s %s", c.User, c.Hostname, cmd)
}

// submittedPostamble closes jobs handed to a batch system.
func submittedPostamble() ([]string, error) {
	return strings.Split(postambleSubmittedJobs, "\n"), nil
}

func directives(format string, args map[string]string) []string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf(format, k, args[k])
	}
	return out
}

// SLURM submits jobs with sbatch over ssh.
type SLURM struct {
	*SSH
}

// NewSLURM creates a SLURM host.
func NewSLURM(name string, opts ...Option) *SLURM {
	return &SLURM{SSH: NewSSH(name, opts...)}
}

func (s *SLURM) JobCmd() string {
	c := s.cfg
	return "mkdir -p $(dirname %ECF_JOBOUT%); " +
		`cp %ECF_JOB% "%ECF_JOBOUT%.jobfile"; ` +
		fmt.Sprintf(`%s %s@%s "sh -l -c 'sbatch -o "%%ECF_JOBOUT%%" "%%ECF_JOBOUT%%.jobfile" /> "%%ECF_JOBOUT%%.jobfile.sub"'"`,
			SSHCommand, c.User, c.Hostname)
}

func (s *SLURM) KillCmd() string {
	c := s.cfg
	return exportEcfVariables +
		fmt.Sprintf(`%s %s@%s "sh -l -c 'scancel "\$(grep Submitted '%%ECF_JOBOUT%%.jobfile.sub' | cut -d' ' -f4)"'"`,
			SSHCommand, c.User, c.Hostname) +
		" && ecflow_client --abort"
}

func (s *SLURM) HostPreamble(exitHook []string) ([]string, error) {
	return JobPreamble(s.cfg.EcflowPath, exitHook), nil
}

func (s *SLURM) Postamble() ([]string, error) { return submittedPostamble() }

// SubmitArguments renders `#SBATCH --key=value` lines sorted by key.
func (s *SLURM) SubmitArguments(args map[string]string) ([]string, error) {
	return directives("#SBATCH --%s=%s", args), nil
}

// PBS submits jobs with qsub over ssh.
type PBS struct {
	*SSH
}

// NewPBS creates a PBS host.
func NewPBS(name string, opts ...Option) *PBS {
	return &PBS{SSH: NewSSH(name, opts...)}
}

func (p *PBS) JobCmd() string {
	c := p.cfg
	return fmt.Sprintf("%s %s@%s '", SSHCommand, c.User, c.Hostname) +
		"mkdir -p $(dirname %ECF_JOBOUT%) ; " +
		"cat - > %ECF_JOBOUT%.jobfile ; " +
		`qsub "%ECF_JOBOUT%.jobfile" 2>&1 | tee "%ECF_JOBOUT%.jobfile.sub"' < %ECF_JOB% `
}

func (p *PBS) KillCmd() string {
	c := p.cfg
	return exportEcfVariables +
		fmt.Sprintf(`%s %s@%s qdel "\$(cat '%%ECF_JOBOUT%%.jobfile.sub')"`, SSHCommand, c.User, c.Hostname) +
		" && ecflow_client --abort"
}

func (p *PBS) HostPreamble(exitHook []string) ([]string, error) {
	return JobPreamble(p.cfg.EcflowPath, exitHook), nil
}

func (p *PBS) Postamble() ([]string, error) { return submittedPostamble() }

// SubmitArguments renders `#PBS -l key=value` lines sorted by key.
func (p *PBS) SubmitArguments(args map[string]string) ([]string, error) {
	return directives("#PBS -l %s=%s", args), nil
}

// Troika hands jobs to the troika submitter.
type Troika struct {
	base
}

// troikaResources maps the accepted submit arguments to sbatch options, in
// output order.
var troikaResources = []struct{ key, option string }{
	{"queue", "--qos="},
	{"job_name", "--job-name="},
	{"tasks", "--ntasks="},
	{"nodes", "--nodes="},
	{"threads_per_task", "--cpus-per-task="},
	{"tasks_per_node", "--ntasks-per-node="},
	{"hyperthreads", "--threads-per-core="},
	{"memory_per_task", "--mem-per-cpu="},
	{"accounting", "--account="},
	{"working_dir", "--chdir="},
	{"time", "--time="},
	{"output", "--output="},
	{"error", "--error="},
	{"priority", "--priority="},
	{"tmpdir", "--gres=ssdtmp:"},
	{"sthost", "--export=STHOST="},
	{"hint", " --hint="},
	{"distribution", " --distribution="},
	{"reservation", "--reservation="},
}

// NewTroika creates a troika host running jobs as user.
func NewTroika(name, user string, opts ...Option) *Troika {
	cfg := newConfig(name, 0, append([]Option{WithUser(user), WithTroikaExec("troika")}, opts...))
	return &Troika{base: base{cfg}}
}

func (t *Troika) command(cmd string) string {
	parts := []string{t.cfg.TroikaExec, "-vv", "", cmd, "-u " + t.cfg.User}
	if t.cfg.TroikaConfig != "" {
		parts[2] = "-c " + t.cfg.TroikaConfig
	}
	return strings.Join(parts, " ")
}

func (t *Troika) JobCmd() string {
	return t.command("submit") + fmt.Sprintf(" -o %%ECF_JOBOUT%% %s %%ECF_JOB%%", t.cfg.Hostname)
}

func (t *Troika) KillCmd() string {
	return t.command("kill") + fmt.Sprintf(" %s %%ECF_JOB%%", t.cfg.Hostname)
}

func (t *Troika) StatusCmd() string {
	return t.command("monitor") + fmt.Sprintf(" %s %%ECF_JOB%%", t.cfg.Hostname)
}

func (t *Troika) CheckCmd() string {
	return t.command("check") + fmt.Sprintf(" %s %%ECF_JOB%%", t.cfg.Hostname)
}

func (t *Troika) RunCommand(cmd string) string { return cmd }

func (t *Troika) HostPreamble(exitHook []string) ([]string, error) {
	return JobPreamble(t.cfg.EcflowPath, exitHook), nil
}

func (t *Troika) Postamble() ([]string, error) { return submittedPostamble() }

func (t *Troika) SubmitArguments(args map[string]string) ([]string, error) {
	known := make(map[string]bool, len(troikaResources))
	for _, r := range troikaResources {
		known[r.key] = true
	}
	unknown := make([]string, 0)
	for k := range args {
		if !known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("submit argument %q not supported", unknown[0])
	}

	var out []string
	for _, r := range troikaResources {
		if v, ok := args[r.key]; ok {
			out = append(out, "#SBATCH "+r.option+v)
		}
	}
	return out, nil
}
