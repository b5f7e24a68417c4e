package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/glorpus-work/hif/internal/logger"
	"github.com/glorpus-work/hif/pkg/cache"
	"github.com/glorpus-work/hif/pkg/config"
	"github.com/glorpus-work/hif/pkg/download"
	"github.com/glorpus-work/hif/pkg/orchestrator"
	"github.com/glorpus-work/hif/pkg/repository"
	"github.com/glorpus-work/hif/pkg/rpmdb"
	"github.com/glorpus-work/hif/pkg/transaction"
)

// Global flag values, bound by NewRootCmd.
var (
	configPath string
	verbose    bool
	noColor    bool
)

var errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))

// loadConfig reads the configuration named by --config, or the default
// one, and initializes logging from it.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.Settings.LogLevel
	if verbose {
		level = "debug"
	}
	logger.InitLogger(level, noColor)
	logger.Debug("Configuration loaded", logger.Fields{"path": path, "repositories": len(cfg.Repositories)})
	return cfg, nil
}

// session is an orchestrator together with the resources it holds open.
type session struct {
	*orchestrator.Orchestrator
	db *rpmdb.DB
}

func (s *session) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// newSession wires the components described by cfg. Summaries and refresh
// lines are written to out.
func newSession(cfg *config.Config, out io.Writer) (*session, error) {
	repos, err := repository.FromConfig(cfg.Repositories)
	if err != nil {
		return nil, err
	}
	s := cfg.Settings
	dl := download.NewManager(s.HTTPTimeout, s.UserAgent)
	cacheMgr := cache.NewManager(s.MetadataDir, s.SolvDir, s.PackagesDir)

	db, err := rpmdb.Open(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	var flags transaction.Flags
	if s.KeepCache {
		flags |= transaction.FlagKeepCache
	}
	exec := transaction.New(db, dl, cacheMgr, s.InstallRoot,
		transaction.WithRepositories(repos),
		transaction.WithWorkDir(s.CacheDir),
		transaction.WithFlags(flags),
	)

	return &session{
		Orchestrator: &orchestrator.Orchestrator{
			Repos:       repos,
			Store:       repository.NewStore(s.MetadataDir, s.SolvDir, dl),
			DB:          db,
			Exec:        exec,
			Cache:       cacheMgr,
			LockDir:     s.LockDir,
			Arch:        s.Arch,
			MaxAge:      s.CacheAge,
			Concurrency: s.MaxConcurrent,
			Out:         out,
			Hooks:       orchestrator.Hooks{OnEvent: printEvents(out)},
		},
		db: db,
	}, nil
}

// printEvents shows refresh progress lines and logs everything else.
func printEvents(out io.Writer) func(orchestrator.Event) {
	return func(e orchestrator.Event) {
		if e.Phase == orchestrator.PhaseRefresh && e.Msg != "" {
			_, _ = fmt.Fprintln(out, e.Msg)
			return
		}
		logger.Debug(e.Msg, logger.Fields{"phase": e.Phase, "id": e.ID})
	}
}

// withSession loads the configuration, runs fn and closes the session.
func withSession(out io.Writer, fn func(*session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := newSession(cfg, out)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn("Cannot close installed database", logger.Fields{"error": err})
		}
	}()
	return fn(s)
}

// UseColor reports whether output to f may be highlighted.
func UseColor(f *os.File) bool {
	if noColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintError writes err to w as a single line.
func PrintError(w io.Writer, err error, color bool) {
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	if color {
		msg = errorStyle.Render(msg)
	}
	_, _ = fmt.Fprintln(w, msg)
}
