package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/youruser/canvasapp/internal/config"
	imagepkg "github.com/youruser/canvasapp/internal/image"
	"github.com/youruser/canvasapp/internal/shell"
)

// app carries what the root command resolved before any subcommand runs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "canvas",
		Short: "Compose uploaded images on a fixed 500x500 canvas and export a PNG",
		Long: `Canvas places images on a fixed-size surface, lets you drag and resize them
from a browser page, and exports the flattened result as canvas-image.png.

It can also render a YAML or CSV layout file straight to PNG without a browser.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			slog.SetDefault(a.logger)
			return nil
		},
	}

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newRenderCmd(a))

	return cmd
}

func (a *app) compositorOptions() ([]imagepkg.Option, error) {
	filter, err := imagepkg.ParseFilter(a.cfg.Resample)
	if err != nil {
		return nil, err
	}
	return []imagepkg.Option{
		imagepkg.WithFilter(filter),
		imagepkg.WithDecodeWorkers(a.cfg.DecodeWorkers),
		imagepkg.WithMaxPixels(a.cfg.MaxPixels),
		imagepkg.WithLogger(a.logger),
	}, nil
}

// shellFactory validates the compositor settings once and returns a factory
// that builds every session from them.
func (a *app) shellFactory() (shell.Factory, error) {
	opts, err := a.compositorOptions()
	if err != nil {
		return nil, err
	}
	return func() (*shell.Shell, error) {
		return shell.New(imagepkg.NewCompositor(opts...), a.logger), nil
	}, nil
}

func (a *app) newShell() (*shell.Shell, error) {
	factory, err := a.shellFactory()
	if err != nil {
		return nil, err
	}
	return factory()
}
