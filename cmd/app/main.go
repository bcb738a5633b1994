package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/masque/internal"
	pkgconfig "github.com/starford/masque/pkg/config"
)

func options(cmd *cli.Command) ([]internal.Option, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return []internal.Option{
		internal.WithConfig(cfg),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, opts...)
}

func exportMask(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("usage: %s export <mask-id>", cmd.Root().Name)
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	name, err := internal.ExportMask(ctx, id, opts...)
	if err != nil {
		return fmt.Errorf("export %s: %w", id, err)
	}
	fmt.Fprintln(cmd.Root().Writer, name)
	return nil
}

func importMasks(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("usage: %s import <file>...", cmd.Root().Name)
	}
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	for _, path := range cmd.Args().Slice() {
		masks, err := internal.ImportFile(ctx, path, opts...)
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		for _, m := range masks {
			fmt.Fprintf(cmd.Root().Writer, "%s\t%s\n", m.ID, m.Name)
		}
	}
	return nil
}

func resetState(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	deleted, err := internal.ResetState(ctx, cmd.Args().Slice(), opts...)
	for _, k := range deleted {
		fmt.Fprintf(cmd.Root().Writer, "reset %s\n", k)
	}
	return err
}

func main() {
	cmd := &cli.Command{
		Name:   "masque",
		Usage:  "Mask presets and sidebar state for a chat-assistant front-end",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:      "export",
				Usage:     "Write a mask file into the export directory",
				ArgsUsage: "<mask-id>",
				Action:    exportMask,
			},
			{
				Name:      "import",
				Usage:     "Import masks from mask files",
				ArgsUsage: "<file>...",
				Action:    importMasks,
			},
			{
				Name:      "reset",
				Usage:     "Drop stored state so it reloads with defaults (sidebar, app-config, masks; all when none given)",
				ArgsUsage: "[key...]",
				Action:    resetState,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
