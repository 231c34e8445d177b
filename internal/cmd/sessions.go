package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/insightwire/insightwire/internal/config"
	"github.com/insightwire/insightwire/internal/sessionlock"
	"github.com/insightwire/insightwire/internal/watcher"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage session storage",
	Long:  `Commands for listing and cleaning up sessions under the storage root.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions and their lock status",
	RunE:  runSessionsList,
}

var sessionsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale lock files",
	Long: `Remove lock files left behind by crashed processes.

A lock file is stale when no process holds the flock on it. Locks held
by a live worker are left alone.`,
	RunE: runSessionsClean,
}

var sessionsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch lock activity under the storage root",
	Long:  `Stream session lock acquisitions and releases until interrupted.`,
	RunE:  runSessionsWatch,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsCleanCmd)
	sessionsCmd.AddCommand(sessionsWatchCmd)
}

func sessionsDir(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.ResolveStorageRoot(), "sessions")
}

// lockIsStale reports whether no process holds the flock on path. The probe
// acquires and immediately releases, which is harmless for an unheld lock.
func lockIsStale(path string) bool {
	probe := sessionlock.New(strings.TrimSuffix(path, ".lock"))
	if err := probe.Acquire(50 * time.Millisecond); err != nil {
		return false
	}
	_ = probe.Release()
	return true
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir := sessionsDir(cfg)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		fmt.Println("No sessions found.")
		return nil
	}
	if err != nil {
		return err
	}

	locks := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".lock") {
			locks[strings.TrimSuffix(name, ".lock")] = true
			continue
		}
		names = append(names, name)
	}

	if len(names) == 0 && len(locks) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	for _, name := range names {
		status := "unlocked"
		if locks[name] {
			if lockIsStale(filepath.Join(dir, name+".lock")) {
				status = "stale lock"
			} else {
				status = "LOCKED"
			}
			delete(locks, name)
		}
		fmt.Printf("  %-30s %s\n", name, status)
	}
	// Lock files with no session file next to them
	for name := range locks {
		status := "LOCKED (no session file)"
		if lockIsStale(filepath.Join(dir, name+".lock")) {
			status = "stale lock (no session file)"
		}
		fmt.Printf("  %-30s %s\n", name, status)
	}

	return nil
}

func runSessionsClean(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir := sessionsDir(cfg)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if !lockIsStale(path) {
			fmt.Printf("  skipping %s (held by a live process)\n", entry.Name())
			continue
		}
		if err := os.Remove(path); err != nil {
			fmt.Printf("  could not remove %s: %v\n", entry.Name(), err)
			continue
		}
		removed++
		fmt.Printf("  removed %s\n", entry.Name())
	}
	fmt.Printf("Removed %d stale lock file(s).\n", removed)
	return nil
}

func runSessionsWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	defer logger.Close()

	w, err := watcher.New(sessionsDir(cfg), logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	w.SetChangeCallback(func(locks []watcher.LockState) {
		if len(locks) == 0 {
			fmt.Printf("%s  no locks held\n", time.Now().Format("15:04:05"))
			return
		}
		var names []string
		for _, ls := range locks {
			names = append(names, ls.SessionID)
		}
		fmt.Printf("%s  locked: %s\n", time.Now().Format("15:04:05"), strings.Join(names, ", "))
	})
	w.Start()

	for _, ls := range w.Locks() {
		fmt.Printf("held: %s (since %s)\n", ls.SessionID, ls.Since.Format(time.RFC822))
	}
	fmt.Println("Watching for lock activity. Ctrl+C to stop.")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	return nil
}
