package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "licensegrid",
	Short:         "View, edit and migrate the license table across MySQL, PostgreSQL and SQLite",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var showCmd = &cobra.Command{
	Use:   "show <engine>",
	Short: "Render the table held by an engine",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPanel(cmd, args[0], func(ctx context.Context, p *TablePanel) error {
			return nil
		})
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <engine> <row> <column> <value>",
	Short: "Set one cell; an empty value writes NULL",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		row, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("row must be a number: %w", err)
		}
		return withPanel(cmd, args[0], func(ctx context.Context, p *TablePanel) error {
			return p.EditCell(ctx, row, args[2], args[3])
		})
	},
}

var createCmd = &cobra.Command{
	Use:   "create <engine> column=value...",
	Short: "Insert a row; leave id unset to let the engine assign it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		return withPanel(cmd, args[0], func(ctx context.Context, p *TablePanel) error {
			form, err := p.CreateForm(values)
			if err != nil {
				return err
			}
			_, err = p.CreateRow(ctx, form)
			return err
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <engine> <id>",
	Short: "Delete the row with the given id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPanel(cmd, args[0], func(ctx context.Context, p *TablePanel) error {
			n, err := p.DeleteRow(ctx, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) deleted\n", n)
			return nil
		})
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), versionString())
	},
}

func newMigrateCmd() *cobra.Command {
	var spec MigrationSpec
	cmd := &cobra.Command{
		Use:   "migrate --from <engine> --to <engine>",
		Short: "Drop and recreate the table on the target engine and copy every source row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if spec.Source == spec.Target {
				return fmt.Errorf("--from and --to must name different engines")
			}
			return withWorkbench(cmd, []string{spec.Source, spec.Target}, func(ctx context.Context, wb *Workbench) error {
				n, err := wb.Migrate(ctx, spec)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %d row(s) from %s to %s\n", n, spec.Source, spec.Target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&spec.Source, "from", "", "source engine (mysql, postgres, sqlite)")
	cmd.Flags().StringVar(&spec.Target, "to", "", "target engine (mysql, postgres, sqlite)")
	cmd.Flags().BoolVar(&spec.IncludeIdentity, "include-id", false, "copy id values instead of letting the target assign them")
	cmd.Flags().StringSliceVar(&spec.Columns, "columns", nil, "copy only these columns, in this order (id only if listed)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "licensegrid.toml", "path to TOML config file")
	rootCmd.AddCommand(showCmd, editCmd, createCmd, deleteCmd, newMigrateCmd(), versionCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withWorkbench loads the config, opens the named engines for the duration of fn and
// closes them afterwards. Connection failures are fatal.
func withWorkbench(cmd *cobra.Command, engines []string, fn func(context.Context, *Workbench) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogrusLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	wb, err := openWorkbench(ctx, cfg, engines, newTableRenderer(cmd.OutOrStdout()), logger)
	if err != nil {
		var ce *ConnectError
		if errors.As(err, &ce) {
			logger.ReportFatal(fmt.Sprintf("%s connection error! %v", ce.Engine, ce.Err))
		}
		return err
	}
	defer wb.Close()

	return fn(ctx, wb)
}

// withPanel opens one engine, loads its table and hands the panel to fn.
func withPanel(cmd *cobra.Command, engine string, fn func(context.Context, *TablePanel) error) error {
	return withWorkbench(cmd, []string{engine}, func(ctx context.Context, wb *Workbench) error {
		p, err := wb.Panel(engine)
		if err != nil {
			return err
		}
		if err := p.Refresh(ctx); err != nil {
			return err
		}
		return fn(ctx, p)
	})
}

// parseAssignments turns column=value arguments into a map.
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("expected column=value, got %q", a)
		}
		if _, dup := values[name]; dup {
			return nil, fmt.Errorf("column %q assigned more than once", name)
		}
		values[name] = value
	}
	return values, nil
}
