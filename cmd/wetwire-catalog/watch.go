package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-aws-catalog/internal/asset"
	"github.com/lex00/wetwire-aws-catalog/internal/buildconfig"
)

// watchIgnored are never packaged, so changes to them do not trigger a rebuild.
var watchIgnored = []string{"*.pyc", "**/__pycache__/**", "*.swp", "*~"}

type watchOptions struct {
	debounce     time.Duration
	outputFormat string
	outputFile   string
	assetsFile   string
	sel          selection
}

// newWatchCmd creates the "watch" subcommand for auto-rebuilding on changes.
func newWatchCmd(g *globalFlags) *cobra.Command {
	var opts watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Auto-rebuild on layer source or config changes",
		Long: `Watch monitors the layer source tree and the build config and rebuilds
the template whenever they change.

The watch command:
- Monitors <source_root>/lambda recursively, and the --config file
- Ignores Python bytecode, caches and editor swap files
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    wetwire-catalog watch -o template.json
    wetwire-catalog watch --debounce 1s --assets assets.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, g, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "json", "Output format for build: json or yaml")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file for build (default: summary only)")
	cmd.Flags().StringVar(&opts.assetsFile, "assets", "", "Write the asset manifest (JSON) to this file")
	opts.sel.register(cmd)

	return cmd
}

// runWatch monitors the sources and rebuilds on changes.
func runWatch(cmd *cobra.Command, g *globalFlags, opts watchOptions) error {
	sourceDir, err := watchedSourceDir(g.configPath)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	out := cmd.OutOrStdout()

	if err := addDirRecursive(watcher, sourceDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", sourceDir, err)
	}
	fmt.Fprintf(out, "Watching: %s\n", sourceDir)

	if g.configPath != "" {
		if err := watcher.Add(g.configPath); err != nil {
			return fmt.Errorf("failed to watch %s: %w", g.configPath, err)
		}
		fmt.Fprintf(out, "Watching: %s\n", g.configPath)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	fmt.Fprintln(out, "Running initial build...")
	runWatchBuild(cmd, g, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(out, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addDirRecursive(watcher, event.Name); err != nil {
						zap.L().Warn("failed to watch new directory", zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}

			if !shouldRebuild(event, sourceDir) {
				continue
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(out, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			if next, err := watchedSourceDir(g.configPath); err == nil && next != sourceDir {
				if err := moveWatch(watcher, sourceDir, next); err != nil {
					zap.L().Warn("failed to watch new source root", zap.String("dir", next), zap.Error(err))
				} else {
					sourceDir = next
					fmt.Fprintf(out, "Watching: %s\n", sourceDir)
				}
			}
			if g.configPath != "" {
				// Editors that replace the file on save drop the old watch.
				_ = watcher.Add(g.configPath)
			}
			runWatchBuild(cmd, g, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-sigChan:
			fmt.Fprintln(out, "\nStopping watch...")
			return nil
		}
	}
}

// shouldRebuild reports whether event touches something that ends up in the
// template or a layer bundle.
func shouldRebuild(event fsnotify.Event, sourceDir string) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}

	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}

	rel, err := filepath.Rel(sourceDir, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		// Outside the source tree: the config file.
		return true
	}
	return !asset.Excluded(filepath.ToSlash(rel), watchIgnored)
}

// watchedSourceDir loads the build config and returns the layer source tree it
// points at.
func watchedSourceDir(configPath string) (string, error) {
	cfg, err := buildconfig.Load(configPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg.SourceRoot, "lambda"), nil
}

// moveWatch starts watching to and stops watching everything under from.
func moveWatch(watcher *fsnotify.Watcher, from, to string) error {
	if err := addDirRecursive(watcher, to); err != nil {
		return err
	}
	for _, path := range watcher.WatchList() {
		if within(from, path) && !within(to, path) {
			_ = watcher.Remove(path)
		}
	}
	return nil
}

func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// addDirRecursive adds a directory and all subdirectories to the watcher.
func addDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			name := filepath.Base(path)
			if path != dir && (strings.HasPrefix(name, ".") || name == "__pycache__") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

// runWatchBuild synthesizes and writes the template, reporting instead of
// returning errors so the watch loop keeps running.
func runWatchBuild(cmd *cobra.Command, g *globalFlags, opts watchOptions) {
	out := cmd.OutOrStdout()

	tmpl, assets, err := g.synth(cmd.Context(), opts.sel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Build error: %v\n", err)
		return
	}

	data, err := renderTemplate(tmpl, opts.outputFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Output error: %v\n", err)
		return
	}

	if opts.assetsFile != "" {
		if err := writeAssets(opts.assetsFile, assets); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return
		}
	}

	if opts.outputFile == "" {
		fmt.Fprintln(out, "Build successful")
		fmt.Fprintf(out, "Generated %d resources, %d assets\n", len(tmpl.Resources), len(assets))
		return
	}

	if err := os.WriteFile(opts.outputFile, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return
	}
	fmt.Fprintf(out, "Build successful, wrote %s\n", opts.outputFile)
}
