// Package cmd wires the applocate CLI surface (§6) onto cobra: argument
// parsing and flag validation (owned here, exit code 2 on failure) feed
// an orchestrator.Args, and the orchestrator's result is handed to the
// output formatter. Grounded on the teacher's internal/cmd command
// style (cobra.Command + package-level flag vars + an init() that wires
// flags) adapted from a multi-verb crawler CLI to a single lookup verb.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/applocate/internal/exitcode"
	"github.com/3leaps/applocate/internal/observability"
	"github.com/3leaps/applocate/internal/rulepacks"
	"github.com/3leaps/applocate/pkg/orchestrator"
	"github.com/3leaps/applocate/pkg/output"
	"github.com/3leaps/applocate/pkg/rules"
)

// versionInfo holds build metadata injected via ldflags at release time.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{Version: "dev", Commit: "HEAD", BuildDate: "unknown"}

// SetVersionInfo records build metadata; called from main before Execute.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	flagJSON bool
	flagCSV  bool
	flagText bool

	flagExe        bool
	flagInstallDir bool
	flagConfig     bool
	flagData       bool

	flagUser          bool
	flagMachine       bool
	flagConfidenceMin float64
	flagLimit         int
	flagStrict        bool

	flagAll            bool
	flagRunning        bool
	flagPID            int
	flagEvidence       bool
	flagEvidenceKeys   string
	flagScoreBreakdown bool
	flagPackageSource  bool

	flagIndexPath      string
	flagRefreshIndex   bool
	flagClearCache     bool
	flagRulePack       string
	flagNoDefaultRules bool

	flagThreads int
	flagTimeout int
	flagNoColor bool
	flagVerbose bool
	flagTrace   bool
)

var rootCmd = &cobra.Command{
	Use:   "applocate [flags] query...",
	Short: "Locate installed-application artifacts on Windows",
	Long: `applocate finds the executable, install directory, config and data
locations of an installed Windows application by name.

Examples:
  applocate code
  applocate "visual studio code" --json --limit 5
  applocate widget --exe --confidence-min 0.5
  applocate -- --weird-name`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLocate,
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&flagJSON, "json", false, "Emit results as a JSON array")
	flags.BoolVar(&flagCSV, "csv", false, "Emit results as CSV")
	flags.BoolVar(&flagText, "text", false, "Emit results as human-readable text (default format)")

	flags.BoolVar(&flagExe, "exe", false, "Include executable hits")
	flags.BoolVar(&flagInstallDir, "install-dir", false, "Include install-directory hits")
	flags.BoolVar(&flagConfig, "config", false, "Include config hits")
	flags.BoolVar(&flagData, "data", false, "Include data hits")

	flags.BoolVar(&flagUser, "user", false, "Restrict to user-scoped hits")
	flags.BoolVar(&flagMachine, "machine", false, "Restrict to machine-scoped hits")
	flags.Float64Var(&flagConfidenceMin, "confidence-min", 0, "Minimum confidence to emit, in [0,1]")
	flags.IntVar(&flagLimit, "limit", 0, "Maximum hits to emit in total (0 = no limit)")
	flags.BoolVar(&flagStrict, "strict", false, "Require stricter name matching in sources")

	flags.BoolVar(&flagAll, "all", false, "Disable collapsing; emit every surviving hit")
	flags.BoolVar(&flagRunning, "running", false, "Include the running-process source")
	flags.IntVar(&flagPID, "pid", 0, "Restrict the process source to a single pid (implies --running)")
	flags.BoolVar(&flagEvidence, "evidence", false, "Include evidence in output")
	flags.StringVar(&flagEvidenceKeys, "evidence-keys", "", "Comma-separated evidence keys to include (implies --evidence)")
	flags.BoolVar(&flagScoreBreakdown, "score-breakdown", false, "Include the ranker's score breakdown in output")
	flags.BoolVar(&flagPackageSource, "package-source", false, "Include packageType/source fields even in text output")

	flags.StringVar(&flagIndexPath, "index-path", defaultIndexPath(), "Path to the index cache file")
	flags.BoolVar(&flagRefreshIndex, "refresh-index", false, "Bypass the cache and force fresh discovery")
	flags.BoolVar(&flagClearCache, "clear-cache", false, "Delete the index cache file before running")
	flags.StringVar(&flagRulePack, "rule-pack", "", "Path to an additional YAML rule pack, applied after the built-in default")
	flags.BoolVar(&flagNoDefaultRules, "no-default-rules", false, "Skip the built-in default rule pack")

	flags.IntVar(&flagThreads, "threads", 0, "Source fan-out worker cap (0 = min(CPUs,16))")
	flags.IntVar(&flagTimeout, "timeout", 5, "Per-source deadline in seconds (max 120)")
	flags.BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors in diagnostic output")
	flags.BoolVar(&flagVerbose, "verbose", false, "Enable per-source diagnostic logging")
	flags.BoolVar(&flagTrace, "trace", false, "Enable per-item diagnostic logging")
}

// Execute runs the root command, returning the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if ce, ok := err.(*cmdError); ok {
			fmt.Fprintln(os.Stderr, ce.message)
			return ce.code
		}
		fmt.Fprintln(os.Stderr, err)
		return exitcode.ArgError
	}
	return lastExitCode
}

// lastExitCode communicates runLocate's result to Execute, since cobra's
// RunE returning nil loses any non-error exit code.
var lastExitCode int

// cmdError pairs a message with the exit code Execute should return.
type cmdError struct {
	code    int
	message string
}

func (e *cmdError) Error() string { return e.message }

func exitError(code int, message string, err error) error {
	if err != nil {
		message = message + ": " + err.Error()
	}
	return &cmdError{code: code, message: message}
}

func runLocate(cmd *cobra.Command, args []string) error {
	observability.Init(observability.Options{Verbose: flagVerbose, Trace: flagTrace, NoColor: flagNoColor})
	defer observability.Sync()

	if len(args) == 0 {
		return exitError(exitcode.ArgError, "a query is required", nil)
	}
	query := strings.Join(args, " ")

	format := output.Text
	switch {
	case flagJSON:
		format = output.JSON
	case flagCSV:
		format = output.CSV
	case flagText:
		format = output.Text
	}

	if flagConfidenceMin < 0 || flagConfidenceMin > 1 {
		return exitError(exitcode.ArgError, "--confidence-min must be in [0,1]", nil)
	}
	if flagLimit < 0 {
		return exitError(exitcode.ArgError, "--limit must be >= 0", nil)
	}
	if flagPID < 0 {
		return exitError(exitcode.ArgError, "--pid must be > 0", nil)
	}
	threads := flagThreads
	if threads < 0 {
		return exitError(exitcode.ArgError, "--threads must be >= 1", nil)
	}
	timeout := flagTimeout
	if timeout <= 0 {
		timeout = 5
	}
	if timeout > 120 {
		timeout = 120
	}

	var evidenceKeys []string
	if flagEvidenceKeys != "" {
		for _, k := range strings.Split(flagEvidenceKeys, ",") {
			if k = strings.TrimSpace(k); k != "" {
				evidenceKeys = append(evidenceKeys, k)
			}
		}
	}
	includeEvidence := flagEvidence || len(evidenceKeys) > 0

	rulePacks, err := loadRulePacks()
	if err != nil {
		return exitError(exitcode.ArgError, "failed to load rule pack", err)
	}

	runArgs := orchestrator.Args{
		Query:           query,
		TypeExe:         flagExe,
		TypeInstallDir:  flagInstallDir,
		TypeConfig:      flagConfig,
		TypeData:        flagData,
		UserOnly:        flagUser,
		MachineOnly:     flagMachine,
		Strict:          flagStrict,
		ConfidenceMin:   flagConfidenceMin,
		Limit:           flagLimit,
		All:             flagAll,
		IncludeRunning:  flagRunning,
		PID:             flagPID,
		IncludeEvidence: includeEvidence,
		EvidenceKeys:    evidenceKeys,
		ScoreBreakdown:  flagScoreBreakdown,
		IndexPath:       flagIndexPath,
		RefreshIndex:    flagRefreshIndex,
		ClearCache:      flagClearCache,
		ThreadCap:       threads,
		Timeout:         time.Duration(timeout) * time.Second,
		RulePacks:       rulePacks,
	}

	result := orchestrator.Run(cmd.Context(), runArgs)

	records := output.NewHitRecords(result.Hits, includeEvidence, flagScoreBreakdown, evidenceKeys)
	writeOpts := output.Options{IncludePackageSource: flagPackageSource}
	if err := output.Write(os.Stdout, records, format, writeOpts); err != nil {
		return exitError(exitcode.Internal, "failed to write output", err)
	}

	observability.CLILogger.Debug("locate finished",
		zap.String("query", query),
		zap.Int("hits", len(result.Hits)),
		zap.Int("exitCode", result.ExitCode))

	lastExitCode = result.ExitCode
	return nil
}

// loadRulePacks assembles the rule packs applied to this run: the
// built-in default (unless --no-default-rules), followed by the pack at
// --rule-pack, if given. Per §4.3, rule order is part of the contract,
// so the default pack's rules are always evaluated before a
// user-supplied pack's.
func loadRulePacks() ([]*rules.Pack, error) {
	var packs []*rules.Pack

	if !flagNoDefaultRules {
		pack, err := rules.Load(rulepacks.Default)
		if err != nil {
			return nil, fmt.Errorf("built-in default rule pack: %w", err)
		}
		packs = append(packs, pack)
	}

	if flagRulePack != "" {
		data, err := os.ReadFile(flagRulePack)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", flagRulePack, err)
		}
		pack, err := rules.Load(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", flagRulePack, err)
		}
		packs = append(packs, pack)
	}

	return packs, nil
}

func defaultIndexPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "applocate-index.json"
	}
	return dir + "/applocate/index.json"
}
