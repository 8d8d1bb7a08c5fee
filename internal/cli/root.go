// Package cli implements the librarian command-line interface.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/librarian/internal/access"
	"github.com/mesh-intelligence/librarian/internal/accounts"
	"github.com/mesh-intelligence/librarian/internal/catalog"
	"github.com/mesh-intelligence/librarian/internal/directory"
	"github.com/mesh-intelligence/librarian/internal/history"
	"github.com/mesh-intelligence/librarian/internal/ledger"
	"github.com/mesh-intelligence/librarian/internal/logging"
	"github.com/mesh-intelligence/librarian/internal/paths"
	"github.com/mesh-intelligence/librarian/internal/report"
	"github.com/mesh-intelligence/librarian/internal/sqlite"
	"github.com/mesh-intelligence/librarian/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	user      string
	jsonMode  bool
}

// app carries the state one invocation builds up: configuration, the
// attached backend, the services over it, and the signed-in operator.
type app struct {
	flags   rootFlags
	cfg     *viper.Viper
	logger  *slog.Logger
	started bool

	backend   *sqlite.Backend
	recorder  *history.Recorder
	perms     *access.Service
	catalog   *catalog.Service
	directory *directory.Service
	ledger    *ledger.Service
	accounts  *accounts.Service
	reports   *report.Service
	actor     types.Actor

	stdin io.Reader
	lines *bufio.Reader
}

func newApp(stdin io.Reader) *app {
	return &app{logger: logging.Discard(), stdin: stdin}
}

// NewRootCmd creates the top-level "librarian" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newApp(os.Stdin).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "librarian",
		Short: "Circulation ledger for a school library",
		Long: "Librarian keeps the book catalog, lends books to students and takes\n" +
			"them back, and records who did what.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: config data_dir, then platform data dir)")
	pf.StringVar(&a.flags.user, "user", "", "operator user name (default: config user, then admin)")
	pf.BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		a.versionCmd(),
		a.initCmd(),
		a.bookCmd(),
		a.categoryCmd(),
		a.clientCmd(),
		a.outstandingCmd(),
		a.lendCmd(),
		a.retrieveCmd(),
		a.dashboardCmd(),
		a.reportCmd(),
		a.historyCmd(),
		a.userCmd(),
		a.permsCmd(),
		a.lookupCmd(classLookup),
		a.lookupCmd(houseLookup),
		a.exportCmd(),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := newApp(stdin)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil {
		err = cerr
	}
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)
	return a.exitCode(err)
}

// exitCode maps err to 1 for usage and operation errors and 2 for
// infrastructure failures.
func (a *app) exitCode(err error) int {
	if !a.started || types.IsOperational(err) {
		return exitUserError
	}
	return exitSysError
}

// setup loads .env and config.yaml and installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	// Cobra checks required flags after the pre-run hooks; check them here
	// so a missing flag still counts as a usage error.
	if err := cmd.ValidateRequiredFlags(); err != nil {
		return err
	}
	a.started = true
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	a.cfg, err = loadConfig(configDir)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(a.cfg.GetString(cfgKeyLogLevel))
	if err != nil {
		return types.InvalidInputf("%s", err)
	}
	a.logger = logging.New(cmd.ErrOrStderr(), level)
	return nil
}

// storageConfig builds the backend configuration from flags and config.yaml.
func (a *app) storageConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		DataDir: dataDir,
		DBFile:  a.cfg.GetString(cfgKeyDBFile),
		Classes: a.cfg.GetStringSlice(cfgKeyClasses),
		Houses:  a.cfg.GetStringSlice(cfgKeyHouses),
	}, nil
}

// open attaches the backend, wires the services, and seeds the default
// administrator on an empty database.
func (a *app) open(ctx context.Context) error {
	if a.backend != nil {
		return nil
	}
	config, err := a.storageConfig()
	if err != nil {
		return err
	}
	backend := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	if err := backend.Attach(config); err != nil {
		return fmt.Errorf("attach storage: %w", err)
	}
	a.backend = backend

	a.recorder = history.NewRecorder(backend, history.WithLogger(a.logger))
	a.perms = access.NewService(backend, access.WithLogger(a.logger), access.WithRecorder(a.recorder))
	a.catalog = catalog.NewService(backend, a.perms, catalog.WithLogger(a.logger), catalog.WithRecorder(a.recorder))
	a.directory = directory.NewService(backend, a.perms, directory.WithLogger(a.logger), directory.WithRecorder(a.recorder))
	a.ledger = ledger.NewService(backend, a.perms, ledger.WithLogger(a.logger), ledger.WithRecorder(a.recorder))
	a.accounts = accounts.NewService(backend, a.perms, accounts.WithLogger(a.logger), accounts.WithRecorder(a.recorder))
	a.reports = report.NewService(backend)

	if _, err := a.accounts.EnsureAdmin(ctx); err != nil {
		return err
	}
	return nil
}

// signIn opens storage, authenticates the operator, and checks that the
// operator may open every tab in tabs.
func (a *app) signIn(ctx context.Context, tabs ...access.Action) error {
	if err := a.open(ctx); err != nil {
		return err
	}
	user := a.userName()
	password, err := a.password(envPassword, fmt.Sprintf("Password for %s: ", user))
	if err != nil {
		return err
	}
	actor, err := a.accounts.Authenticate(ctx, user, password)
	if err != nil {
		return err
	}
	for _, tab := range tabs {
		if err := a.perms.Require(ctx, actor, tab); err != nil {
			return err
		}
	}
	a.actor = actor
	a.logger.Debug("signed in", "user", actor.UserName)
	return nil
}

func (a *app) close() error {
	if a.backend == nil {
		return nil
	}
	err := a.backend.Detach()
	a.backend = nil
	if err != nil {
		return fmt.Errorf("detach storage: %w", err)
	}
	return nil
}
