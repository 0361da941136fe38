package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"plugdir/internal/bootstrap"
	"plugdir/internal/platform/config"
	"plugdir/sdk/meta"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var rootPath string

	root := &cobra.Command{
		Use:           "plugdir",
		Short:         "Plugin folder discovery and cataloging",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&rootPath, "root", ".", "scan root path")

	root.AddCommand(newScanCmd(&rootPath))
	root.AddCommand(newListCmd(&rootPath))
	root.AddCommand(newGetCmd(&rootPath))
	root.AddCommand(newDoctorCmd(&rootPath))
	root.AddCommand(newTUICmd(&rootPath))
	root.AddCommand(newGenMetaCmd())
	return root
}

func loadApp(rootPath string) (*bootstrap.App, error) {
	cfg, err := config.New(rootPath)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

func newScanCmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the folder and catalog its plugins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*rootPath)
			if err != nil {
				return err
			}
			result, err := app.DiscoveryCLI.Initialize(context.Background())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "scan %s: %d plugins in %d modules\n", result.ScanID, len(result.Plugins), result.ModuleCount)
			for _, p := range result.Plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.Name, p.Version, p.SourceModulePath)
			}
			for _, failure := range result.LoadFailures {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "load failure: %s: %s\n", failure.ModulePath, failure.Error)
			}
			return nil
		},
	}
}

func newListCmd(rootPath *string) *cobra.Command {
	var indexed bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List discovered plugins",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*rootPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			var plugins []struct{ Name, Version, Path string }
			if indexed {
				infos, err := app.DiscoveryCLI.Indexed(ctx)
				if err != nil {
					return err
				}
				for _, p := range infos {
					plugins = append(plugins, struct{ Name, Version, Path string }{p.Name, p.Version, p.SourceModulePath})
				}
			} else {
				if _, err := app.DiscoveryCLI.Initialize(ctx); err != nil {
					return err
				}
				infos, err := app.DiscoveryCLI.List(ctx)
				if err != nil {
					return err
				}
				for _, p := range infos {
					plugins = append(plugins, struct{ Name, Version, Path string }{p.Name, p.Version, p.SourceModulePath})
				}
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins")
				return nil
			}
			for _, p := range plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p.Name, p.Version, p.Path)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&indexed, "indexed", false, "serve from the last recorded scan instead of rescanning")
	return list
}

func newGetCmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name> [version]",
		Short: "Look up one plugin by name and optional version",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*rootPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			if _, err := app.DiscoveryCLI.Initialize(ctx); err != nil {
				return err
			}
			version := ""
			if len(args) == 2 {
				version = args[1]
			}
			p, err := app.DiscoveryCLI.Get(ctx, args[0], version)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "name: %s\nversion: %s\nmodule: %s\ntype: %s\n", p.Name, p.Version, p.SourceModulePath, p.TypeName)
			return nil
		},
	}
}

func newDoctorCmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose every candidate file in the folder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*rootPath)
			if err != nil {
				return err
			}
			reports, err := app.DiscoveryCLI.Doctor(context.Background())
			if err != nil {
				return err
			}
			if len(reports) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no candidate files")
				return nil
			}
			for _, r := range reports {
				status := "not a module"
				if r.Recognized {
					status = "module " + r.Module
					if len(r.MatchedLabels) > 0 {
						status += " matches [" + strings.Join(r.MatchedLabels, ", ") + "]"
					}
				}
				line := fmt.Sprintf("%s\t%s\t%s", r.DisplayName, r.Path, status)
				if r.Detail != "" {
					line += "\t(" + r.Detail + ")"
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return nil
		},
	}
}

func newTUICmd(rootPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse discovered plugins interactively",
		RunE: func(_ *cobra.Command, _ []string) error {
			app, err := loadApp(*rootPath)
			if err != nil {
				return err
			}
			return bootstrap.RunTUI(app)
		},
	}
}

func newGenMetaCmd() *cobra.Command {
	var inPath, outPath, pkg string
	gen := &cobra.Command{
		Use:   "genmeta",
		Short: "Generate the Go source that embeds a module metadata blob",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(inPath)
			if err != nil {
				return fmt.Errorf("read metadata document: %w", err)
			}
			var doc meta.Document
			if err := yaml.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("decode metadata document: %w", err)
			}
			src, err := meta.GoSource(pkg, doc)
			if err != nil {
				return err
			}
			if outPath == "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), src)
				return nil
			}
			if err := os.WriteFile(outPath, []byte(src), 0o644); err != nil {
				return fmt.Errorf("write generated source: %w", err)
			}
			return nil
		},
	}
	gen.Flags().StringVar(&inPath, "in", "plugin-meta.yaml", "metadata document (YAML)")
	gen.Flags().StringVar(&outPath, "out", "", "output Go file (stdout when empty)")
	gen.Flags().StringVar(&pkg, "package", "main", "package name for the generated file")
	_ = gen.MarkFlagRequired("in")
	return gen
}
