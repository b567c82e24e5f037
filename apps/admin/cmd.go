package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kyleyee20/aevum/core"
	"github.com/kyleyee20/aevum/core/assignment"
	"github.com/kyleyee20/aevum/core/course"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	engine  *assignment.Service
	courses *course.Service
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Manage assignments, scoring and the calendar from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.AddCommand(
		cli.signInCmd(),
		cli.signOutCmd(),
		cli.listCmd(),
		cli.addCmd(),
		cli.editCmd(),
		cli.deleteCmd(),
		cli.completeCmd(),
		cli.undoCmd(),
		cli.scoreCmd(),
		cli.sortCmd(),
		cli.pruneCmd(),
		cli.importCmd(),
		cli.syncCmd(),
		cli.institutionCmd(),
		cli.calendarCmd(),
		cli.profilesCmd(),
		cli.resetCmd(),
	)
	return root
}

func (cli *commandLine) run(ctx context.Context, args []string, out io.Writer) error {
	root := cli.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	return root.ExecuteContext(ctx)
}

func (cli *commandLine) signInCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signin",
		Short: "Store the calendar access token. The token is prompted next.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprint(cmd.OutOrStdout(), "Enter access token:")
			token, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if len(strings.TrimSpace(string(token))) == 0 {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.engine.SignIn(cmd.Context(), string(token))
		},
	}
}

func (cli *commandLine) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the access token. Stored assignments are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.engine.SignOut(cmd.Context())
		},
	}
}

func (cli *commandLine) listCmd() *cobra.Command {
	var completed bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active assignments in the selected order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cli.engine.Authenticated() {
				return core.ErrMissingCredential
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if completed {
				fmt.Fprintln(w, "ID\tTITLE\tDUE\tCOMPLETED\tRECOMMENDED")
				for _, c := range cli.engine.ListCompleted() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Title, c.DueDate, c.CompletedAt, c.Recommended)
				}
				return nil
			}
			fmt.Fprintln(w, "ID\tTITLE\tDUE\tSTRENGTH\tPRIORITY\tRECOMMENDED")
			for _, v := range cli.engine.ListActive() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%.2f\t%s\n", v.ID, v.Title, v.DueDate, v.Strength, v.PriorityScore(), v.Recommended)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&completed, "completed", false, "list the completed history instead")
	return cmd
}

func (cli *commandLine) addCmd() *cobra.Command {
	var (
		title, due string
		strength   float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an assignment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			na := assignment.NewAssignment{Title: title, DueDate: due}
			if cmd.Flags().Changed("strength") {
				na.Strength = &strength
			}
			a, err := cli.engine.AddAssignment(cmd.Context(), na)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "assignment title")
	cmd.Flags().StringVar(&due, "due", "", "due date, YYYY-MM-DD (today when empty)")
	cmd.Flags().Float64Var(&strength, "strength", course.DefaultStrength, "strength weight 0-10, overrides the resolved one")
	return cmd
}

func (cli *commandLine) editCmd() *cobra.Command {
	var (
		title, due string
		strength   float64
		reset      bool
	)
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit an assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := assignment.Edit{ResetStrength: reset}
			if cmd.Flags().Changed("title") {
				e.Title = &title
			}
			if cmd.Flags().Changed("due") {
				e.DueDate = &due
			}
			if cmd.Flags().Changed("strength") {
				e.Strength = &strength
			}
			_, err := cli.engine.EditAssignment(cmd.Context(), args[0], e)
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&due, "due", "", "new due date, YYYY-MM-DD")
	cmd.Flags().Float64Var(&strength, "strength", 0, "manual strength weight 0-10")
	cmd.Flags().BoolVar(&reset, "auto", false, "drop the manual strength and resolve it again")
	return cmd
}

func (cli *commandLine) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an assignment and its calendar entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.engine.DeleteAssignment(cmd.Context(), args[0])
		},
	}
}

func (cli *commandLine) completeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete ID",
		Short: "Mark an assignment as completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cli.engine.CompleteAssignment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.ID)
			return nil
		},
	}
}

func (cli *commandLine) undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo COMPLETED_ID",
		Short: "Move a completed assignment back to the active list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := cli.engine.UndoCompletion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.ID)
			return nil
		},
	}
}

func (cli *commandLine) scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score",
		Short: "Score every active assignment and refresh the calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := cli.engine.RunScoring(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scored %d, discarded %d, %d calendar ops\n", report.Scored, report.Discarded, len(report.Ops))
			return nil
		},
	}
}

func (cli *commandLine) sortCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sort ORDER",
		Short:     "Select the list order: recommendedDueDate, dueDate or priorityScore",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(assignment.ByRecommended), string(assignment.ByDueDate), string(assignment.ByPriority)},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.engine.SetSortOrder(cmd.Context(), assignment.SortOrder(args[0]))
		},
	}
}

func (cli *commandLine) pruneCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete overdue assignments and old completed ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("completed-days") {
				n, err := cli.engine.PruneOldCompleted(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d completed\n", n)
				return nil
			}
			report, err := cli.engine.Prune(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d overdue, %d completed\n", report.Overdue, report.Completed)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "completed-days", 0, "only prune completed assignments older than this many days")
	return cmd
}

func (cli *commandLine) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import",
		Short: "Import the external calendar and detect assignments in it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := cli.engine.ImportCalendar(cmd.Context())
			if err != nil {
				return err
			}
			printImport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func (cli *commandLine) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Re-fetch the external calendar and the course vocabulary together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := cli.engine.Sync(cmd.Context())
			if err != nil {
				return err
			}
			printImport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printImport(w io.Writer, report assignment.ImportReport) {
	fmt.Fprintf(w, "%d entries (%d skipped), %d assignments imported, %d overdue pruned\n",
		report.Entries, report.Skipped, report.Imported, report.Pruned)
}

func (cli *commandLine) institutionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "institution NAME",
		Short: "Select the institution whose course vocabulary drives the weights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.engine.SelectInstitution(cmd.Context(), args[0])
		},
	}
}

func (cli *commandLine) calendarCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calendar",
		Short: "Print the merged calendar as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cli.engine.Authenticated() {
				return core.ErrMissingCredential
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(cli.engine.ListCalendar())
		},
	}
}

func (cli *commandLine) profilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List course profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			profiles, err := cli.courses.QueryProfiles()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()
			fmt.Fprintln(w, "ID\tCATEGORY\tSTRENGTH\tNOTES")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%g\t%s\n", p.ID, p.Category, p.Strength, p.Notes)
			}
			return nil
		},
	}

	var (
		strength float64
		notes    string
	)
	add := &cobra.Command{
		Use:   "add CATEGORY",
		Short: "Add a course profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := cli.courses.AddProfile(cmd.Context(), course.NewProfile{Category: args[0], Strength: strength, Notes: notes})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}
	add.Flags().Float64Var(&strength, "strength", course.DefaultStrength, "self-assessed strength, 0 strong to 10 weak")
	add.Flags().StringVar(&notes, "notes", "", "free-form notes")

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a course profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.courses.DeleteProfile(cmd.Context(), args[0])
		},
	}
	cmd.AddCommand(add, del)
	return cmd
}

func (cli *commandLine) resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every active assignment and calendar entry. History and profiles are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				_ = cmd.Usage()
				return errHelp
			}
			return cli.engine.ResetAll(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
