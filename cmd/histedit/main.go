// cmd/histedit/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	gitignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"histedit/internal/config"
	"histedit/internal/logging"
	"histedit/internal/pathindex"
	"histedit/internal/session"
	"histedit/internal/stack"
	shared "histedit/shared/types"
)

var logger *logging.Logger

var rootCmd = &cobra.Command{
	Use:   "histedit",
	Short: "histedit rewrites a stack of draft commits in memory",
	Long: `histedit loads a host repository's draft commit stack as an
ExportStack, lets you fold, drop, and reorder commits against an
in-memory, dependency-checked model, and emits the minimal ImportStack
needed to bring the host repository up to date.`,
}

func init() {
	l, err := logging.NewLogger("info")
	if err != nil {
		fmt.Fprintln(os.Stderr, "initializing logger:", err)
		os.Exit(1)
	}
	logger = l

	var stackPath string
	var outPath string
	var sessionDir string

	persistentFlags := func(cmd *cobra.Command) {
		cmd.Flags().StringVarP(&stackPath, "stack", "s", "stack.json", "path to the ExportStack JSON file")
		cmd.Flags().StringVarP(&outPath, "out", "o", "", "path to write the updated ExportStack (defaults to --stack)")
		cmd.Flags().StringVar(&sessionDir, "session", ".histedit/session", "checkpoint store directory")
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print every commit in the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := loadState(stackPath)
			if err != nil {
				return err
			}
			cyan := color.New(color.FgCyan).SprintFunc()
			for _, line := range st.Describe() {
				fmt.Println(cyan(line))
			}
			return nil
		},
	}
	persistentFlags(showCmd)

	foldCmd := &cobra.Command{
		Use:   "fold <rev>",
		Short: "Fold a commit into its parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := parseRev(args[0])
			if err != nil {
				return err
			}
			return withEdit(stackPath, outPath, sessionDir, "fold", func(st *stack.CommitStackState) (*stack.CommitStackState, error) {
				return st.FoldDown(rev)
			})
		},
	}
	persistentFlags(foldCmd)

	dropCmd := &cobra.Command{
		Use:   "drop <rev>",
		Short: "Drop a commit from the stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := parseRev(args[0])
			if err != nil {
				return err
			}
			return withEdit(stackPath, outPath, sessionDir, "drop", func(st *stack.CommitStackState) (*stack.CommitStackState, error) {
				return st.Drop(rev)
			})
		},
	}
	persistentFlags(dropCmd)

	reorderCmd := &cobra.Command{
		Use:   "reorder <rev...>",
		Short: "Reorder the stack into the given rev permutation",
		RunE: func(cmd *cobra.Command, args []string) error {
			order := make([]shared.Rev, len(args))
			for i, a := range args {
				r, err := parseRev(a)
				if err != nil {
					return err
				}
				order[i] = r
			}
			return withEdit(stackPath, outPath, sessionDir, "reorder", func(st *stack.CommitStackState) (*stack.CommitStackState, error) {
				return st.Reorder(order)
			})
		},
	}
	persistentFlags(reorderCmd)

	upCmd := &cobra.Command{
		Use:   "up <rev>",
		Short: "Move a commit one position earlier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := parseRev(args[0])
			if err != nil {
				return err
			}
			return withEdit(stackPath, outPath, sessionDir, "move-up", func(st *stack.CommitStackState) (*stack.CommitStackState, error) {
				return st.MoveUp(rev)
			})
		},
	}
	persistentFlags(upCmd)

	downCmd := &cobra.Command{
		Use:   "down <rev>",
		Short: "Move a commit one position later",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := parseRev(args[0])
			if err != nil {
				return err
			}
			return withEdit(stackPath, outPath, sessionDir, "move-down", func(st *stack.CommitStackState) (*stack.CommitStackState, error) {
				return st.MoveDown(rev)
			})
		},
	}
	persistentFlags(downCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Print the minimal ImportStack for the host repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := loadState(stackPath)
			if err != nil {
				return err
			}
			actions, err := st.Export()
			if err != nil {
				return fmt.Errorf("exporting: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(actions)
		},
	}
	persistentFlags(exportCmd)

	undoCmd := &cobra.Command{
		Use:   "undo",
		Short: "Restore the stack to its last checkpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := session.Open(sessionDir)
			if err != nil {
				return err
			}
			defer store.Close()

			cp, err := store.Last()
			if err != nil {
				return err
			}
			if cp == nil {
				fmt.Println("no checkpoint to undo to")
				return nil
			}
			if err := writeStack(stackPath, cp.Export); err != nil {
				return err
			}
			if err := store.Delete(cp.ID); err != nil {
				return err
			}
			fmt.Printf("restored checkpoint %q (%s)\n", cp.Label, cp.ID)
			return nil
		},
	}
	persistentFlags(undoCmd)

	watchCmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-print the stack whenever the ExportStack file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchStack(args[0])
		},
	}

	scanCmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Build a demo single-commit ExportStack from real files on disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			es, err := scanDirectory(args[0])
			if err != nil {
				return err
			}
			return writeStack(outPathOrDefault(outPath, stackPath), es)
		},
	}
	persistentFlags(scanCmd)

	pathsCmd := &cobra.Command{
		Use:   "paths <prefix>",
		Short: "List every tracked path starting with prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := loadState(stackPath)
			if err != nil {
				return err
			}
			idx := pathindex.Build(st.BottomFiles(), st.Commits())
			for _, p := range idx.WithPrefix(args[0]) {
				fmt.Println(p)
			}
			return nil
		},
	}
	persistentFlags(pathsCmd)

	rootCmd.AddCommand(showCmd, foldCmd, dropCmd, reorderCmd, upCmd, downCmd, exportCmd, undoCmd, watchCmd, scanCmd, pathsCmd)
}

func parseRev(s string) (shared.Rev, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(s, "r"))
	if err != nil {
		return 0, fmt.Errorf("invalid rev %q: %w", s, err)
	}
	return shared.Rev(n), nil
}

func outPathOrDefault(out, fallback string) string {
	if out != "" {
		return out
	}
	return fallback
}

func loadState(stackPath string) (*stack.CommitStackState, *config.Config, error) {
	data, err := os.ReadFile(stackPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", stackPath, err)
	}
	var es shared.ExportStack
	if err := json.Unmarshal(data, &es); err != nil {
		return nil, nil, fmt.Errorf("decoding %s: %w", stackPath, err)
	}
	cfg, err := config.Load("")
	if err != nil {
		return nil, nil, err
	}
	st, err := stack.NewCommitStackState(es, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("building stack: %w", err)
	}
	return st, cfg, nil
}

func writeStack(path string, es shared.ExportStack) error {
	data, err := json.MarshalIndent(es, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding stack: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// withEdit loads the stack, applies op, checkpoints the prior state so
// `histedit undo` can restore it, and writes the edited stack back out.
func withEdit(stackPath, outPath, sessionDir, opName string, op func(*stack.CommitStackState) (*stack.CommitStackState, error)) error {
	ctx := logging.WithOp(context.Background(), opName)
	st, _, err := loadState(stackPath)
	if err != nil {
		return err
	}

	store, err := session.Open(sessionDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if _, err := st.Export(); err != nil {
		return fmt.Errorf("snapshotting before %s: %w", opName, err)
	}
	before, err := reExportFull(st)
	if err != nil {
		return err
	}
	if _, err := store.Save(opName, before, time.Now().Unix()); err != nil {
		logger.WithOp(ctx).Warn("failed to save checkpoint", zap.Error(err))
	}

	edited, err := op(st)
	if err != nil {
		return err
	}

	result, err := edited.Export()
	if err != nil {
		return fmt.Errorf("exporting after %s: %w", opName, err)
	}
	final, err := reExportFull(edited)
	if err != nil {
		return err
	}
	_ = result // the minimal diff is what a real host would apply; the CLI persists the full state

	return writeStack(outPathOrDefault(outPath, stackPath), final)
}

// reExportFull renders every commit in st as a plain ExportCommit, used to
// persist the CLI's on-disk stack.json in full rather than as a minimal
// host-side diff. UseFileContent first guarantees every file entry is
// DataText/DataBinary, never a lazy file-stack reference.
func reExportFull(st *stack.CommitStackState) (shared.ExportStack, error) {
	materialized, err := st.UseFileContent()
	if err != nil {
		return nil, fmt.Errorf("materializing file content: %w", err)
	}

	commits := materialized.Commits()
	out := make(shared.ExportStack, len(commits))
	for i, c := range commits {
		files := make(map[string]shared.ExportFile, len(c.Files))
		for path, f := range c.Files {
			ef := shared.ExportFile{CopyFrom: f.CopyFrom, Flags: f.Flags}
			if f.IsAbsent() {
				ef.Deleted = true
			} else if f.Kind == shared.DataBinary {
				ef.Binary = f.Binary
			} else {
				ef.Data = f.Text
			}
			files[path] = ef
		}
		var parents []shared.Hash
		if i > 0 {
			parents = []shared.Hash{shared.Hash(fmt.Sprintf("rev:%d", i-1))}
		}
		out[i] = shared.ExportCommit{
			Node:      shared.Hash(fmt.Sprintf("rev:%d", i)),
			Immutable: c.ImmutableKind != shared.ImmutableNone,
			Author:    c.Author,
			Date:      c.Date,
			TZOffset:  c.TZOffset,
			Text:      c.Text,
			Parents:   parents,
			Files:     files,
		}
	}
	return out, nil
}

func watchStack(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", path)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			st, _, err := loadState(path)
			if err != nil {
				fmt.Fprintln(os.Stderr, "reload failed:", err)
				continue
			}
			for _, line := range st.Describe() {
				fmt.Println(line)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}

// scanDirectory builds a single-commit demo ExportStack from real files
// under dir, honoring a .histeditignore file in dir's ignore-pattern
// syntax.
func scanDirectory(dir string) (shared.ExportStack, error) {
	var matcher *gitignore.GitIgnore
	if m, err := gitignore.CompileIgnoreFile(dir + "/.histeditignore"); err == nil {
		matcher = m
	}

	files := make(map[string]shared.ExportFile)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if matcher != nil && matcher.MatchesPath(e.Name()) {
			continue
		}
		data, err := os.ReadFile(dir + "/" + e.Name())
		if err != nil {
			return nil, err
		}
		files[e.Name()] = shared.ExportFile{Data: string(data)}
	}

	return shared.ExportStack{{
		Node:   "rev:0",
		Author: "scan",
		Date:   time.Now().Unix(),
		Text:   "scan: " + dir,
		Files:  files,
	}}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
