package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"approvals/internal/api"
	"approvals/internal/api/remote"
	"approvals/internal/cache"
	"approvals/internal/cli"
	"approvals/internal/config"
	"approvals/internal/fetch"
	applog "approvals/internal/log"
	"approvals/internal/view"
)

// deps lets tests swap the remote API for an in-process backend.
type deps struct {
	loadConfig func() (*config.Config, error)
	newBackend func(cfg *config.Config) (api.Backend, error)
}

func defaultDeps() deps {
	return deps{
		loadConfig: config.Load,
		newBackend: func(cfg *config.Config) (api.Backend, error) {
			return remote.New(cfg.APIURL, remote.WithTimeout(cfg.RequestTimeout))
		},
	}
}

type rootOptions struct {
	APIURL   string
	LogLevel string
}

// session is one coordinator over one fetch cache, alive for a command run.
type session struct {
	coord   *view.Coordinator
	cache   *fetch.Cache
	manager *cache.Manager
	out     io.Writer
}

func (s *session) Close() {
	if s.manager != nil {
		s.manager.Stop()
	}
}

func newRootCmd(d deps) *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:           "approvals",
		Short:         "Browse employee transactions and approve them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api-url", "", "approvals API base URL (overrides APPROVALS_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	open := func(cmd *cobra.Command) (*session, error) {
		return openSession(d, opts, cmd.OutOrStdout())
	}
	cmd.AddCommand(newEmployeesCmd(open))
	cmd.AddCommand(newListCmd(open))
	cmd.AddCommand(newApproveCmd(open))
	cmd.AddCommand(newShellCmd(open))
	return cmd
}

func openSession(d deps, opts rootOptions, out io.Writer) (*session, error) {
	cfg, err := d.loadConfig()
	if err != nil {
		return nil, err
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	cli.SetupLogger(applog.ComponentView, level, cfg.LogJSON)

	backend, err := d.newBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to API: %w", err)
	}

	fc := fetch.NewCache(fetch.Options{
		MaxEntries: cfg.FetchCacheMaxEntries,
		TTL:        cfg.FetchCacheTTL,
	})
	s := &session{
		coord: view.New(backend, fc),
		cache: fc,
		out:   out,
	}
	if cfg.FetchCacheTTL > 0 {
		s.manager = cache.NewManager()
		s.manager.Register(fc)
		s.manager.StartCleanup(max(cfg.FetchCacheTTL/2, time.Second))
	}
	return s, nil
}
