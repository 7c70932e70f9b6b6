package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskboard/internal/server"
	"taskboard/internal/stats"
	"taskboard/internal/storage"
	"taskboard/internal/store"
	"taskboard/internal/task"
	"taskboard/internal/ui"
)

func newTUICmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive task board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func (a *app) runTUI() error {
	st := store.New(a.client(), a.log)
	return ui.Run(a.ctx, st, a.cfg, a.log)
}

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development task service over sqlite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			if listen == "" {
				listen = a.cfg.Server.Listen
			}
			dbPath, _ := cmd.Flags().GetString("db")
			if dbPath == "" {
				dbPath = a.cfg.Server.DBPath
			}

			db, err := storage.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			h := server.NewHandler(db, a.log)
			if err := h.Seed(a.ctx, a.cfg.Server.SeedCategories); err != nil {
				return fmt.Errorf("seed categories: %w", err)
			}
			a.log.WithField("db", dbPath).Info("database ready")
			return server.ListenAndServe(a.ctx, listen, h)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().String("listen", "", "Listen address (default from config)")
	cmd.Flags().String("db", "", "sqlite database path (default from config)")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks grouped by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			var f stats.Filter
			f.Term, _ = cmd.Flags().GetString("search")
			f.Category, _ = cmd.Flags().GetString("category")
			f.HideCompleted, _ = cmd.Flags().GetBool("hide-done")

			tasks := f.Apply(st.Snapshot().Tasks)
			jsonOutput, _ := cmd.Flags().GetBool("json")
			if jsonOutput {
				if tasks == nil {
					tasks = []task.Task{}
				}
				return writeJSON(a.stdout, tasks)
			}
			writeGroups(a.stdout, stats.Group(tasks, now()), now())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("search", "s", "", "Only tasks whose title or description contains this text")
	cmd.Flags().StringP("category", "c", "", "Only tasks in this category")
	cmd.Flags().Bool("hide-done", false, "Hide completed tasks")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [title]",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := task.Draft{Title: strings.Join(args, " ")}
			d.Description, _ = cmd.Flags().GetString("description")
			d.Category, _ = cmd.Flags().GetString("category")
			raw, _ := cmd.Flags().GetString("priority")
			p, err := task.ParsePriority(raw)
			if err != nil {
				return err
			}
			d.Priority = p
			if err := d.Validate(); err != nil {
				return err
			}

			st, err := a.loadStore()
			if err != nil {
				return err
			}
			created, err := st.AddTask(a.ctx, d)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Added %s: %s\n", created.ID, created.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("description", "d", "", "Task description")
	cmd.Flags().StringP("category", "c", "", "Category name (default: first category)")
	cmd.Flags().StringP("priority", "p", "", "Priority: high, medium or low (default medium)")
	return cmd
}

// newDoneCmd builds "done" or "undone", which set the completion flag.
func newDoneCmd(a *app, completed bool) *cobra.Command {
	use, short, verb := "done [id]", "Mark a task completed", "Completed"
	if !completed {
		use, short, verb = "undone [id]", "Mark a task not completed", "Reopened"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(a.client(), a.log)
			updated, err := st.ToggleCompletion(a.ctx, task.ID(args[0]), !completed)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "%s %s: %s\n", verb, updated.ID, updated.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newEditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [id]",
		Short: "Change a task's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p task.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				v, _ := flags.GetString("title")
				p.Title = task.String(v)
			}
			if flags.Changed("description") {
				v, _ := flags.GetString("description")
				p.Description = task.String(v)
			}
			if flags.Changed("category") {
				v, _ := flags.GetString("category")
				p.Category = task.String(v)
			}
			if flags.Changed("priority") {
				v, _ := flags.GetString("priority")
				pr, err := task.ParsePriority(v)
				if err != nil {
					return err
				}
				p.Priority = task.PriorityOf(pr)
			}
			if p.Empty() {
				return errors.New("nothing to change: pass --title, --description, --category or --priority")
			}

			// categories are needed to check --category
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			updated, err := st.UpdateTask(a.ctx, task.ID(args[0]), p)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Updated %s: %s\n", updated.ID, updated.Title)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().StringP("description", "d", "", "New description")
	cmd.Flags().StringP("category", "c", "", "New category name")
	cmd.Flags().StringP("priority", "p", "", "New priority: high, medium or low")
	return cmd
}

func newRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm [id]",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(a.client(), a.log)
			if err := st.DeleteTask(a.ctx, task.ID(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Deleted %s\n", task.ID(args[0]))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newStatsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.loadStore()
			if err != nil {
				return err
			}
			s := stats.Compute(st.Snapshot().Tasks)
			if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
				return writeJSON(a.stdout, s)
			}
			writeStats(a.stdout, s)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.client().ListCategories(a.ctx)
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				fmt.Fprintln(a.stdout, "No categories found. Create one with: taskboard category add \"Name\"")
				return nil
			}
			for _, c := range cats {
				fmt.Fprintf(a.stdout, "%-12s %s\n", c.ID, c.Name)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func newCategoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "category",
		Short:         "Manage categories",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "add [name]",
		Short: "Create a category",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := store.New(a.client(), a.log)
			c, err := st.AddCategory(a.ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Added category %s: %s\n", c.ID, c.Name)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	})
	return cmd
}
