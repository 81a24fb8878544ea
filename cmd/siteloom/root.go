package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	progress "gopkg.in/cheggaaa/pb.v1"

	"golang.org/x/term"

	siteloom "github.com/kjhansen/siteloom"
	"github.com/kjhansen/siteloom/internal/manifest"
	"github.com/kjhansen/siteloom/internal/nodes/filecopy"
	"github.com/kjhansen/siteloom/internal/zaplog"
)

func newRegistry() *manifest.Registry {
	r := manifest.NewRegistry()
	// Additional node kinds register here as the repository grows them.
	_ = r.Register("file-copy", filecopy.FromSpec)
	return r
}

var rootCmd = &cobra.Command{
	Use:   "siteloom <manifest.yaml>",
	Short: "Run an incremental XML/XSLT build pipeline.",
	Long: `siteloom reads a YAML manifest describing a set of build nodes and their
dependencies, resolves them into a single execution order, and runs each
node in turn, skipping any item whose inputs have not changed since the
last run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		root, _ := flags.GetString("root")
		cacheDir, _ := flags.GetString("cache-dir")
		verbose, _ := flags.GetBool("verbose")
		quiet, _ := flags.GetBool("quiet")
		dagOnly, _ := flags.GetBool("dag")

		manifestPath := args[0]
		fs := osfs.New(root)
		data, err := readManifestFile(fs, manifestPath)
		if err != nil {
			return err
		}

		m, err := manifest.Load(data)
		if err != nil {
			return err
		}

		logger, sync, err := newLogger(verbose)
		if err != nil {
			return err
		}
		defer sync()

		cacheStore, err := siteloom.NewFilesystemCache(fs, cacheDir)
		if err != nil {
			return err
		}

		registry := newRegistry()
		pipeline, err := registry.BuildPipeline(m, cacheStore, logger, fs)
		if err != nil {
			return err
		}
		if err := pipeline.Initialize(); err != nil {
			return err
		}

		order := pipeline.ExecutionOrder()
		if dagOnly {
			for _, name := range order {
				fmt.Println(name)
			}
			return nil
		}

		var bar *progress.ProgressBar
		if !quiet && term.IsTerminal(int(os.Stderr.Fd())) {
			bar = progress.New(len(order))
			bar.Callback = func(msg string) {
				os.Stderr.WriteString("\033[2K\r" + msg)
			}
			bar.NotPrint = true
			bar.ShowPercent = false
			bar.ShowSpeed = false
			bar.Prefix("building ")
			bar.SetMaxWidth(80).Start()
			pipeline.OnNodeStart = func(name string, index, total int) {
				bar.Set(index).Postfix(" [" + name + "] ")
			}
		}

		if err := pipeline.Run(); err != nil {
			return err
		}
		if bar != nil {
			bar.Finish()
		}
		if !quiet {
			fmt.Fprintln(os.Stderr, "done.")
		}
		return nil
	},
}

func readManifestFile(fs billy.Filesystem, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open manifest %q", path)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %q", path)
	}
	return data, nil
}

func newLogger(verbose bool) (siteloom.Logger, func() error, error) {
	if verbose {
		l, err := zaplog.NewDevelopment()
		if err != nil {
			return nil, nil, err
		}
		return l, l.Sync, nil
	}
	l, err := zaplog.New()
	if err != nil {
		return nil, nil, err
	}
	return l, l.Sync, nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.String("root", ".", "Project root directory.")
	flags.String("cache-dir", "build/.cache", "Cache directory, relative to root.")
	flags.Bool("verbose", false, "Use a development (human-readable, debug-level) logger.")
	flags.Bool("quiet", false, "Suppress the progress bar and the final \"done.\" message.")
	flags.Bool("dag", false, "Print the resolved execution order and exit without running anything.")
}
