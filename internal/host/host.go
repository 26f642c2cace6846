// Package host describes where and how ecFlow runs the jobs of a task.
//
// A Host supplies the ECF_JOB_CMD/ECF_KILL_CMD family of variables set on
// the node that selects it, and the preamble and postamble wrapped around
// every job script generated below that node.
package host

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"sort"
	"strings"
)

// SSHCommand prefixes every remote command.
const SSHCommand = "ssh -v -o StrictHostKeyChecking=no"

const defaultEcflowPath = "/usr/local/bin"

// ErrNullHost is returned when a job script is requested for a task
// running under a NullHost.
var ErrNullHost = errors.New("Constructing Tasks under NullHost is invalid")

const setEcfVariables = `
export ECF_PORT=%ECF_PORT%    # The server port number
export ECF_HOST=%ECF_HOST%    # The host name where the server is running
export ECF_NAME=%ECF_NAME%    # The name of this current task
export ECF_PASS=%ECF_PASS%    # A unique password
export ECF_TRYNO=%ECF_TRYNO%  # Current try number of the task
`

const postambleSubmittedJobs = `
# -------------------------- ECFLOW STATUS FOR SUBMITTED JOBS ------------------------,

wait                      # wait for background process to stop
exit_hook                 # calling custom exit/cleaning code
trap 0                    # Remove all traps
ecflow_client --complete  # Notify ecFlow of a normal end
exit 0
`

// exportEcfVariables is the inline form of setEcfVariables used in job
// and kill commands.
const exportEcfVariables = "export ECF_PORT=%ECF_PORT%; " +
	"export ECF_HOST=%ECF_HOST%; " +
	"export ECF_NAME=%ECF_NAME%; " +
	"export ECF_PASS=%ECF_PASS%; " +
	"export ECF_TRYNO=%ECF_TRYNO%; "

// Host is a job execution target.
type Host interface {
	Config() *Config
	// JobCmd is the value of ECF_JOB_CMD.
	JobCmd() string
	// KillCmd is the value of ECF_KILL_CMD.
	KillCmd() string
	StatusCmd() string
	CheckCmd() string
	// HostPreamble returns the host specific part of the job preamble.
	HostPreamble(exitHook []string) ([]string, error)
	// Postamble returns the lines closing every job.
	Postamble() ([]string, error)
	// SubmitArguments renders scheduler directives placed after the shebang.
	SubmitArguments(args map[string]string) ([]string, error)
	// RunCommand wraps cmd so that it runs on the host.
	RunCommand(cmd string) string
}

// Variable is an ecFlow variable a host sets on the node selecting it.
type Variable struct {
	Name  string
	Value string
}

// Config holds the settings shared by all hosts.
type Config struct {
	Name     string
	Hostname string
	User     string

	ScratchDirectory   string
	ResourcesDirectory string
	// LogDirectory is ECF_OUT. Hosts behind a batch system may need a
	// directory visible to the server.
	LogDirectory string

	// Limit is the number of tasks that may run at once. Zero means no
	// limit.
	Limit int

	ExtraPaths           []string
	ExtraVariables       map[string]string
	EnvironmentVariables map[string]string
	ExtraPreamble        []string

	ModuleSource string
	Modules      []string
	PurgeModules bool

	// LabelHost adds an exec_host label where the host is selected.
	LabelHost bool
	// EcflowPath is the directory holding ecflow_client.
	EcflowPath string
	// ServerEcfVars leaves the job and kill commands to the server
	// defaults.
	ServerEcfVars bool

	IndirectHost string
	IndirectUser string

	TroikaExec   string
	TroikaConfig string
}

// Option configures a host.
type Option func(*Config)

func WithName(name string) Option { return func(c *Config) { c.Name = name } }
func WithHostname(hostname string) Option { return func(c *Config) { c.Hostname = hostname } }
func WithUser(user string) Option { return func(c *Config) { c.User = user } }
func WithLimit(limit int) Option { return func(c *Config) { c.Limit = limit } }
func WithEcflowPath(path string) Option { return func(c *Config) { c.EcflowPath = path } }
func WithLogDirectory(dir string) Option { return func(c *Config) { c.LogDirectory = dir } }
func WithModuleSource(src string) Option { return func(c *Config) { c.ModuleSource = src } }
func WithPurgeModules() Option { return func(c *Config) { c.PurgeModules = true } }
func WithoutLabel() Option { return func(c *Config) { c.LabelHost = false } }
func WithServerEcfVars() Option { return func(c *Config) { c.ServerEcfVars = true } }

func WithScratchDirectory(dir string) Option {
	return func(c *Config) { c.ScratchDirectory = dir }
}

func WithResourcesDirectory(dir string) Option {
	return func(c *Config) { c.ResourcesDirectory = dir }
}

func WithExtraPaths(paths ...string) Option {
	return func(c *Config) { c.ExtraPaths = append(c.ExtraPaths, paths...) }
}

func WithModules(modules ...string) Option {
	return func(c *Config) { c.Modules = append(c.Modules, modules...) }
}

func WithExtraPreamble(lines ...string) Option {
	return func(c *Config) { c.ExtraPreamble = append(c.ExtraPreamble, lines...) }
}

func WithExtraVariables(vars map[string]string) Option {
	return func(c *Config) { c.ExtraVariables = mergeInto(c.ExtraVariables, vars) }
}

func WithEnvironmentVariables(vars map[string]string) Option {
	return func(c *Config) { c.EnvironmentVariables = mergeInto(c.EnvironmentVariables, vars) }
}

// WithIndirectHost routes SSH through another host, given as host or
// user@host.
func WithIndirectHost(host string) Option {
	return func(c *Config) { c.IndirectHost = host }
}

func WithIndirectUser(user string) Option {
	return func(c *Config) { c.IndirectUser = user }
}

func WithTroikaExec(exec string) Option { return func(c *Config) { c.TroikaExec = exec } }
func WithTroikaConfig(config string) Option { return func(c *Config) { c.TroikaConfig = config } }

func mergeInto(dst, src map[string]string) map[string]string {
	if dst == nil {
		dst = make(map[string]string, len(src))
	}
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// newConfig applies the options over the common defaults. The user is
// left for the constructor to derive.
func newConfig(name string, limit int, opts []Option) *Config {
	c := &Config{
		Name:         name,
		Limit:        limit,
		LogDirectory: "%ECF_HOME%",
		LabelHost:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Hostname == "" {
		c.Hostname = c.Name
	}
	if c.EcflowPath == "" {
		c.EcflowPath = lookupEcflowPath()
	}
	return c
}

func lookupEcflowPath() string {
	if p, err := exec.LookPath("ecflow_client"); err == nil {
		return filepath.Dir(p)
	}
	return defaultEcflowPath
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

func sortedPairs(m map[string]string) []Variable {
	out := make([]Variable, 0, len(m))
	for k, v := range m {
		out = append(out, Variable{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Variables returns the ecFlow variables to set on the node selecting h,
// in the order they are added.
func Variables(h Host) []Variable {
	if _, ok := h.(*Null); ok {
		return nil
	}
	c := h.Config()
	var vars []Variable
	if !c.ServerEcfVars {
		vars = append(vars,
			Variable{"ECF_JOB_CMD", h.JobCmd()},
			Variable{"ECF_KILL_CMD", h.KillCmd()},
			Variable{"ECF_STATUS_CMD", h.StatusCmd()},
			Variable{"ECF_CHECK_CMD", h.CheckCmd()},
			Variable{"ECF_OUT", c.LogDirectory},
		)
	}
	return append(vars, sortedPairs(c.ExtraVariables)...)
}

// Label returns the exec_host label value for h, if it labels nodes.
func Label(h Host) (string, bool) {
	if _, ok := h.(*Null); ok {
		return "", false
	}
	c := h.Config()
	return c.Hostname, c.LabelHost
}

// Preamble returns the lines every job on h starts with, after the set
// -x/-e/-u block.
func Preamble(h Host, exitHook []string) ([]string, error) {
	c := h.Config()
	lines := strings.Split(setEcfVariables, "\n")
	if len(c.ExtraPaths) > 0 {
		lines = append(lines, fmt.Sprintf("export PATH=%s:${PATH}", strings.Join(c.ExtraPaths, ":")))
	}
	for _, v := range sortedPairs(c.EnvironmentVariables) {
		lines = append(lines, fmt.Sprintf("export %s=\"%s\"", v.Name, v.Value))
	}

	specific, err := h.HostPreamble(exitHook)
	if err != nil {
		return nil, err
	}
	lines = append(lines, specific...)

	if len(c.ExtraPreamble) > 0 {
		lines = append(lines, "")
		lines = append(lines, c.ExtraPreamble...)
	}
	return lines, nil
}

// JobPreamble is the preamble of jobs handed to a batch system: it
// initialises the job with the server and traps failures.
func JobPreamble(ecflowPath string, exitHook []string) []string {
	lines := strings.Split(preambleInit(ecflowPath), "\n")
	return append(lines, strings.Split(preambleErrorFunction(ecflowPath, exitHook), "\n")...)
}

func preambleInit(ecflowPath string) string {
	return fmt.Sprintf(`
# ----------------------------- ECFLOW INIT ----------------------------

export PATH=%s:$PATH

export ECF_RID=$$  # record the process id. Also used for zombie detection

# Tell ecFlow we have started
ecflow_client --init=$$
`, ecflowPath)
}

func preambleErrorFunction(ecflowPath string, exitHook []string) string {
	var sb strings.Builder
	sb.WriteString(`
# custom exit/cleanup code
exit_hook () {
    echo "cleaning up ...."
`)
	for _, line := range exitHook {
		sb.WriteString("    " + line + "\n")
	}
	sb.WriteString("}\n\n")
	fmt.Fprintf(&sb, `
# ----------------------------- TRAPS FOR SUBMITTED JOBS ----------------------------

# Define a error handler
ERROR() {
    export PATH=%s:$PATH
    set +eu                     # Clear -eu flag, so we don't fail
    wait                        # wait for background process to stop
    exit_hook                   # calling custom exit/cleaning code
    ecflow_client --abort=trap  # Notify ecFlow that something went wrong, using 'trap' as the reason
    trap 0                      # Remove the trap
    exit 1                      # End the script with error
}

# Trap any calls to exit and errors caught by the -e flag
trap ERROR 0

# Trap any signal that may cause the script to fail
trap '{ echo "Killed by a signal"; ERROR ; }' 1 2 3 4 5 6 7 8 10 12 13 15
`, ecflowPath)
	return sb.String()
}

// base carries the defaults shared by every host.
type base struct {
	cfg *Config
}

func (b *base) Config() *Config { return b.cfg }
func (b *base) StatusCmd() string { return "true" }
func (b *base) CheckCmd() string { return "true" }

func (b *base) HostPreamble([]string) ([]string, error) { return nil, nil }
func (b *base) Postamble() ([]string, error) { return nil, nil }

func (b *base) SubmitArguments(args map[string]string) ([]string, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("host %s does not accept submit arguments", b.cfg.Name)
	}
	return nil, nil
}

func (b *base) String() string { return b.cfg.Hostname }
