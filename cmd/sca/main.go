package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spycats/internal/app"
	"spycats/internal/config"
	"spycats/internal/db"
	"spycats/internal/domain"
	"spycats/internal/engine"
	"spycats/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "sca",
	Short: "Spy Cat Agency CLI",
	Long: `Spy Cat Agency tracks spy cats, their missions and mission targets.
- Cats: operatives with a catalog-validated breed and a salary.
- Missions: a unit of work holding 1-3 targets, optionally assigned to one cat.
- Targets: sub-objectives with free-text notes, trackable to completion.
A mission completes automatically when its last target completes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SPYCATS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(catCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(targetCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
}

func catCmd() *cobra.Command {
	cat := &cobra.Command{Use: "cat", Short: "Manage spy cats"}
	cat.AddCommand(catCreateCmd())
	cat.AddCommand(catListCmd())
	cat.AddCommand(catShowCmd())
	cat.AddCommand(catSalaryCmd())
	cat.AddCommand(catDeleteCmd())
	return cat
}

func catCreateCmd() *cobra.Command {
	var name, breed string
	var years int
	var salary float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Recruit a spy cat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCat(ctx, engine.CatCreateOptions{
					Name:              name,
					YearsOfExperience: years,
					Breed:             breed,
					Salary:            salary,
				})
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "cat name")
	cmd.Flags().StringVar(&breed, "breed", "", "cat breed (validated against the breed catalog)")
	cmd.Flags().IntVar(&years, "years", 0, "years of experience")
	cmd.Flags().Float64Var(&salary, "salary", 0, "salary")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("breed")
	_ = cmd.MarkFlagRequired("salary")
	return cmd
}

func catListCmd() *cobra.Command {
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List spy cats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cats, err := e.Repo.ListCats(ctx, skip, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cats)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"ID", "Name", "Breed", "Years", "Salary", "Mission"})
				for _, c := range cats {
					mission := ""
					if c.MissionID != nil {
						mission = *c.MissionID
					}
					t.AppendRow(table.Row{c.ID, c.Name, c.Breed, c.YearsOfExperience, c.Salary, mission})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "rows to skip")
	cmd.Flags().IntVar(&limit, "limit", 100, "max rows")
	return cmd
}

func catShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a spy cat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.GetCat(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	return cmd
}

func catSalaryCmd() *cobra.Command {
	var salary float64
	cmd := &cobra.Command{
		Use:   "salary <id>",
		Short: "Update a cat's salary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.UpdateSalary(ctx, args[0], salary)
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().Float64Var(&salary, "salary", 0, "new salary")
	_ = cmd.MarkFlagRequired("salary")
	return cmd
}

func catDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Dismiss a spy cat (must not be on a mission)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteCat(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("cat deleted")
				return nil
			})
		},
	}
	return cmd
}

func missionCmd() *cobra.Command {
	mission := &cobra.Command{Use: "mission", Short: "Manage missions"}
	mission.AddCommand(missionCreateCmd())
	mission.AddCommand(missionListCmd())
	mission.AddCommand(missionShowCmd())
	mission.AddCommand(missionDeleteCmd())
	return mission
}

func missionCreateCmd() *cobra.Command {
	var catID string
	var targets []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a mission with 1-3 targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.MissionCreateOptions{CatID: catID}
			for _, spec := range targets {
				name, country, ok := strings.Cut(spec, ":")
				if !ok {
					return fmt.Errorf("invalid --target %q; expected name:country", spec)
				}
				opts.Targets = append(opts.Targets, engine.TargetInput{Name: name, Country: country})
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateMission(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
	cmd.Flags().StringVar(&catID, "cat", "", "cat id to assign (optional)")
	cmd.Flags().StringArrayVar(&targets, "target", nil, "target as name:country (repeatable, 1-3)")
	return cmd
}

func missionListCmd() *cobra.Command {
	var skip, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				missions, err := e.Repo.ListMissions(ctx, skip, limit)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(missions)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"ID", "Cat", "Completed", "Targets"})
				for _, m := range missions {
					cat := ""
					if m.CatID != nil {
						cat = *m.CatID
					}
					t.AppendRow(table.Row{m.ID, cat, m.IsCompleted, targetSummary(m.Targets)})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&skip, "skip", 0, "rows to skip")
	cmd.Flags().IntVar(&limit, "limit", 100, "max rows")
	return cmd
}

func targetSummary(targets []domain.Target) string {
	parts := make([]string, 0, len(targets))
	for _, t := range targets {
		mark := " "
		if t.IsCompleted {
			mark = "x"
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", mark, t.Name))
	}
	return strings.Join(parts, ", ")
}

func missionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a mission with its targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.GetMission(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
	return cmd
}

func missionDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a mission and its targets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteMission(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("mission deleted")
				return nil
			})
		},
	}
	return cmd
}

func targetCmd() *cobra.Command {
	target := &cobra.Command{Use: "target", Short: "Manage mission targets"}
	target.AddCommand(targetShowCmd())
	target.AddCommand(targetUpdateCmd())
	return target
}

func targetShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.GetTarget(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	return cmd
}

func targetUpdateCmd() *cobra.Command {
	var notes string
	var completed bool
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update target notes or mark it complete",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := engine.TargetUpdateOptions{ID: args[0]}
			if cmd.Flags().Changed("notes") {
				opts.Notes = &notes
			}
			if cmd.Flags().Changed("completed") {
				opts.IsCompleted = &completed
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.UpdateTarget(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "target notes")
	cmd.Flags().BoolVar(&completed, "completed", false, "completion flag")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage service config"}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default spycats.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	})
	return cfg
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			e, cfg, closer, err := app.Bootstrap(workspace)
			if err != nil {
				return err
			}
			defer closer()
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Spy Cat Agency API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, _, closer, err := app.Bootstrap(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer closer()
	return fn(ctx, e)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
