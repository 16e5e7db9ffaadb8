// Command c2n synchronizes a local directory of Markdown and code files
// with a Notion page subtree: init, clone, push, pull, status.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/livyn-inc/cursor-to-notion/internal/config"
	"github.com/livyn-inc/cursor-to-notion/internal/ident"
	"github.com/livyn-inc/cursor-to-notion/internal/notion"
	"github.com/livyn-inc/cursor-to-notion/internal/project"
	"github.com/livyn-inc/cursor-to-notion/internal/pull"
	"github.com/livyn-inc/cursor-to-notion/internal/push"
	"github.com/livyn-inc/cursor-to-notion/internal/report"
	"github.com/livyn-inc/cursor-to-notion/internal/status"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// opError marks an operational failure (exit 1) as opposed to a usage
// error (exit 2).
type opError struct {
	err error
}

func (e *opError) Error() string { return e.err.Error() }
func (e *opError) Unwrap() error { return e.err }

func operational(err error) error {
	if err == nil {
		return nil
	}
	return &opError{err: err}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var op *opError
		if errors.As(err, &op) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

var rootCmd = &cobra.Command{
	Use:     "c2n",
	Short:   "Sync a local directory tree with a Notion page subtree",
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Long: `c2n mirrors Markdown and code files into Notion pages and back, with a
version-control-style workflow: clone a page subtree, edit locally, push
changes up, pull remote edits down with line-level merging.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	initRootURL      string
	initWorkspaceURL string
	initSyncMode     string
)

var initCmd = &cobra.Command{
	Use:   "init [folder]",
	Short: "Create an empty sync project in a folder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		// init is the one command allowed to fall back to NOTION_ROOT_URL.
		config.LoadEnv(dir)
		rootURL := initRootURL
		if rootURL == "" {
			rootURL = os.Getenv(config.EnvRootURL)
		}
		if rootURL == "" {
			return operational(errors.New("no root page URL: pass --root-url or set NOTION_ROOT_URL"))
		}
		if _, err := ident.FromURL(rootURL); err != nil {
			return operational(fmt.Errorf("root URL: %w", err))
		}

		if err := project.Init(dir, rootURL, initWorkspaceURL, initSyncMode); err != nil {
			return operational(err)
		}
		fmt.Printf("Initialized sync project in %s\n", dir)
		return nil
	},
}

var cloneWorkspaceURL string

var cloneCmd = &cobra.Command{
	Use:   "clone [url] [folder]",
	Short: "Initialize a project from a remote page and pull its subtree",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		dir := "."
		if len(args) == 2 {
			dir = args[1]
		}
		if _, err := ident.FromURL(url); err != nil {
			return operational(fmt.Errorf("clone URL: %w", err))
		}
		if err := project.Init(dir, url, cloneWorkspaceURL, config.ModeHierarchy); err != nil {
			return operational(err)
		}
		fmt.Printf("Initialized %s; pulling remote subtree...\n", dir)
		return runPull(cmd.Context(), dir, pull.Options{Apply: true})
	},
}

var (
	pushForceAll bool
	pushDryRun   bool
	pushVerbose  bool
)

var pushCmd = &cobra.Command{
	Use:   "push <folder>",
	Short: "Upload local changes to the remote subtree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := project.Open(args[0], project.Options{Write: !pushDryRun})
		if err != nil {
			return operational(err)
		}
		defer sess.Close()

		rootID, err := config.NewResolver(sess.Config, sess.Index).RootPageID()
		if err != nil {
			return operational(err)
		}

		opts := push.Options{
			ForceAll:    pushForceAll,
			DryRun:      pushDryRun,
			Verbose:     pushVerbose,
			NoDirUpdate: sess.Config.NoDirUpdate,
			Mode:        sess.Config.SyncMode,
			Parallelism: sess.Config.Parallelism,
		}
		plan, err := push.BuildPlan(sess.Dir, sess.Index, sess.Ignore, sess.Cache, opts)
		if err != nil {
			return operational(err)
		}

		var api notion.API
		if !pushDryRun {
			token, err := config.Token()
			if err != nil {
				return operational(err)
			}
			api = notion.New(token)
		}

		rep := report.New()
		eng := push.NewEngine(api, sess.Index, rep, rootID, opts)
		if err := eng.Execute(cmd.Context(), plan); err != nil {
			return operational(err)
		}

		if !pushDryRun {
			// Flush even after interruption: everything already committed
			// remotely stays recorded.
			if err := sess.SaveAll(); err != nil {
				return operational(err)
			}
			rep.PrintSummary(os.Stdout, pushVerbose)
			if rep.Failed() {
				return operational(errors.New("push completed with failures"))
			}
		}
		return nil
	},
}

var (
	pullNewOnly      bool
	pullExistingOnly bool
	pullForceAll     bool
	pullDryRun       bool
	pullVerbose      bool
)

var pullCmd = &cobra.Command{
	Use:   "pull <folder>",
	Short: "Download remote changes into the local tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if pullNewOnly && pullExistingOnly {
			return errors.New("--new-only and --existing-only are mutually exclusive")
		}
		return runPull(cmd.Context(), args[0], pull.Options{
			NewOnly:      pullNewOnly,
			ExistingOnly: pullExistingOnly,
			ForceAll:     pullForceAll,
			DryRun:       pullDryRun,
			Verbose:      pullVerbose,
			Apply:        true,
		})
	},
}

func runPull(ctx context.Context, dir string, opts pull.Options) error {
	sess, err := project.Open(dir, project.Options{Write: !opts.DryRun})
	if err != nil {
		return operational(err)
	}
	defer sess.Close()

	rootID, err := config.NewResolver(sess.Config, sess.Index).RootPageID()
	if err != nil {
		return operational(err)
	}
	token, err := config.Token()
	if err != nil {
		return operational(err)
	}

	opts.Mode = sess.Config.SyncMode
	opts.Parallelism = sess.Config.Parallelism
	if !sess.Config.PullApply {
		opts.Apply = false
	}
	if opts.ForceAll {
		sess.Cache.InvalidateRemote()
	}

	rep := report.New()
	eng := pull.NewEngine(notion.New(token), sess.Index, sess.Ignore, sess.Cache, rep, sess.Dir, rootID, opts)
	if err := eng.Run(ctx); err != nil {
		return operational(err)
	}

	if !opts.DryRun {
		if err := sess.SaveAll(); err != nil {
			return operational(err)
		}
		rep.PrintSummary(os.Stdout, opts.Verbose)
		if n := rep.Conflicts(); n > 0 {
			fmt.Printf("%d file(s) contain conflict markers; resolve them before pushing.\n", n)
		}
		if rep.Failed() {
			return operational(errors.New("pull completed with failures"))
		}
	}
	return nil
}

var statusFix bool

var statusCmd = &cobra.Command{
	Use:   "status <folder>",
	Short: "Show sync state of tracked items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := project.Open(args[0], project.Options{
			Write:                statusFix,
			TolerateCorruptIndex: true,
		})
		if err != nil {
			return operational(err)
		}
		defer sess.Close()

		ok, err := status.Run(os.Stdout, sess, statusFix)
		if err != nil {
			return operational(err)
		}
		if !ok {
			return operational(errors.New("status found problems"))
		}
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initRootURL, "root-url", "", "Notion page URL to sync with")
	initCmd.Flags().StringVar(&initWorkspaceURL, "workspace-url", "", "workspace page URL above the project root")
	initCmd.Flags().StringVar(&initSyncMode, "sync-mode", config.ModeHierarchy, "projection mode: hierarchy or flat")

	cloneCmd.Flags().StringVar(&cloneWorkspaceURL, "workspace-url", "", "workspace page URL above the project root")

	pushCmd.Flags().BoolVar(&pushForceAll, "force-all", false, "push every file regardless of change detection")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "compute and print the plan without writing")
	pushCmd.Flags().BoolVar(&pushVerbose, "verbose", false, "log skipped items too")

	pullCmd.Flags().BoolVar(&pullNewOnly, "new-only", false, "only discover pages missing locally")
	pullCmd.Flags().BoolVar(&pullExistingOnly, "existing-only", false, "only refresh pages already tracked")
	pullCmd.Flags().BoolVar(&pullForceAll, "force-all", false, "re-render every tracked page")
	pullCmd.Flags().BoolVar(&pullDryRun, "dry-run", false, "enumerate the plan without writing")
	pullCmd.Flags().BoolVar(&pullVerbose, "verbose", false, "log unchanged items too")

	statusCmd.Flags().BoolVar(&statusFix, "fix", false, "repair legacy config keys and normalize the index")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(pullCmd)
	rootCmd.AddCommand(statusCmd)
}
