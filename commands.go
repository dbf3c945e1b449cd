package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leafo/pathfs/internal/pathfs"
)

func parsePath(arg string) (pathfs.Path, error) {
	return pathfs.NewPath(arg)
}

func newLsCommand() *cobra.Command {
	var (
		recurse     bool
		recurseGlob string
		filesOnly   bool
		dirsOnly    bool
		relative    bool
		strict      bool
	)

	cmd := &cobra.Command{
		Use:   "ls DIR",
		Short: "List the entries of a directory",
		Long: `Lists a directory breadth first.

Examples:
  pathfs ls . --recurse --files
  pathfs ls src --recurse-glob '**' --dirs --relative
  pathfs ls /data --recurse --strict   # stop at the first unreadable directory`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if filesOnly && dirsOnly {
				return fmt.Errorf("--files and --dirs are mutually exclusive")
			}
			base := pathfs.Path(".")
			if len(args) == 1 {
				p, err := parsePath(args[0])
				if err != nil {
					return err
				}
				base = p
			}

			w := base.Ls().WithLogger(logger)
			switch {
			case recurseGlob != "":
				pred, err := pathfs.Glob(recurseGlob)
				if err != nil {
					return err
				}
				w.RecurseIf(pred)
			case recurse:
				w.Recurse()
			}
			if filesOnly {
				w.Files()
			}
			if dirsOnly {
				w.Dirs()
			}
			if relative {
				w.RelativePaths()
			}

			out := cmd.OutOrStdout()
			if !strict {
				for p := range w.All() {
					fmt.Fprintln(out, p)
				}
				return nil
			}
			for p, err := range w.Try().All() {
				if err != nil {
					return err
				}
				fmt.Fprintln(out, p)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recurse, "recurse", "r", false, "descend into every directory")
	cmd.Flags().StringVar(&recurseGlob, "recurse-glob", "", "descend only into directories whose relative path matches this glob")
	cmd.Flags().BoolVar(&filesOnly, "files", false, "print regular files only")
	cmd.Flags().BoolVar(&dirsOnly, "dirs", false, "print directories only")
	cmd.Flags().BoolVar(&relative, "relative", false, "print paths relative to DIR")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on the first directory that cannot be listed")
	return cmd
}

func newCpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cp SRC DST",
		Short: "Copy a file or a directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePath(args[0])
			if err != nil {
				return err
			}
			to, err := parsePath(args[1])
			if err != nil {
				return err
			}
			if err := from.Cp(to); err != nil {
				return err
			}
			logger.Debug("Copied", "from", from, "to", to)
			return nil
		},
	}
}

func newMvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mv SRC DST",
		Short: "Rename a file or directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parsePath(args[0])
			if err != nil {
				return err
			}
			to, err := parsePath(args[1])
			if err != nil {
				return err
			}
			return from.Mv(to)
		},
	}
}

func newRmCommand() *cobra.Command {
	var match string

	cmd := &cobra.Command{
		Use:   "rm PATH",
		Short: "Remove a path, or the children of a directory matching a glob",
		Long: `Removes PATH. Missing paths are not an error.

With --match only the immediate children of PATH whose name matches the glob
are removed; deeper entries are left alone.

Examples:
  pathfs rm build
  pathfs rm build --match '*.o'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parsePath(args[0])
			if err != nil {
				return err
			}
			if match == "" {
				return target.Rm()
			}
			pred, err := pathfs.GlobName(match)
			if err != nil {
				return err
			}
			return target.RmMatching(pred)
		},
	}

	cmd.Flags().StringVar(&match, "match", "", "remove only immediate children whose name matches this glob")
	return cmd
}

func newMkdirCommand() *cobra.Command {
	var parents bool

	cmd := &cobra.Command{
		Use:   "mkdir DIR",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := parsePath(args[0])
			if err != nil {
				return err
			}
			if parents {
				return dir.Mkdirs()
			}
			return dir.Mkdir()
		},
	}

	cmd.Flags().BoolVarP(&parents, "parents", "p", false, "create missing parent directories")
	return cmd
}

func newCatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cat FILE",
		Short: "Print a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := parsePath(args[0])
			if err != nil {
				return err
			}
			if err := file.AssertFile(); err != nil {
				return err
			}
			data, err := file.ReadBytes()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

