// Package cli implements ccdb, a command line tool for inspecting the
// database written by cc_wrapper.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bal0sk/diffkemp/database"
)

// NewRootCommand creates the root command for ccdb.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ccdb",
		Short: "Inspect the LLVM IR database written by cc_wrapper",
	}

	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewCheckCommand())

	return cmd
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	Kind     string
	Existing bool
	Unique   bool
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:          "list <db-file>",
		Short:        "Print the records of a database",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), args[0], opts, database.Exists)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only records of this kind (o|f)")
	cmd.Flags().BoolVar(&opts.Existing, "existing", false, "only records whose file exists")
	cmd.Flags().BoolVar(&opts.Unique, "unique", false, "drop repeated records")

	return cmd
}

func runList(w io.Writer, path string, opts *ListOptions, exists func(string) bool) error {
	if opts.Kind != "" && opts.Kind != database.KindObject.String() && opts.Kind != database.KindIR.String() {
		return fmt.Errorf("invalid kind %q: must be o or f", opts.Kind)
	}

	records, err := database.ReadFile(path)
	if err != nil {
		return err
	}
	if opts.Unique {
		records = database.Unique(records)
	}

	for _, r := range records {
		if opts.Kind != "" && r.Kind.String() != opts.Kind {
			continue
		}
		if opts.Existing && !exists(r.Path) {
			continue
		}
		fmt.Fprintln(w, r)
	}
	return nil
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <db-file>",
		Short: "Report malformed lines and records whose file is missing",
		Long: `Check reads the whole database and reports every line that is not a
valid record and every record whose file no longer exists. It fails when
anything is reported.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), args[0], database.Exists)
		},
	}
}

func runCheck(w io.Writer, path string, exists func(string) bool) error {
	data, err := readLines(path)
	if err != nil {
		return err
	}

	problems := 0
	for i, line := range data {
		if line == "" {
			continue
		}
		r, ok := database.ParseRecord(line)
		if !ok {
			fmt.Fprintf(w, "%s:%d: malformed record %q\n", path, i+1, line)
			problems++
			continue
		}
		if !exists(r.Path) {
			fmt.Fprintf(w, "%s:%d: missing file %s\n", path, i+1, r.Path)
			problems++
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}
	fmt.Fprintf(w, "%s: ok\n", path)
	return nil
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), nil
}
