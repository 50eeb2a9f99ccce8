package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/youruser/canvasapp/internal/composition"
	imagepkg "github.com/youruser/canvasapp/internal/image"
	"github.com/youruser/canvasapp/internal/layout"
	"github.com/youruser/canvasapp/internal/shell"
	"github.com/youruser/canvasapp/internal/util"
)

func newRenderCmd(a *app) *cobra.Command {
	var (
		layoutPath string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a layout file to PNG",
		Long: `Render reads a YAML or CSV layout listing image files with their position
and size, paints them in order on the 500x500 surface and writes a PNG.

Relative image paths are resolved against the layout file's directory.`,
		Example: `  canvas render --layout poster.yaml
  canvas render --layout poster.csv --out build/poster.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := a.newShell()
			if err != nil {
				return err
			}
			written, err := renderLayout(cmd.Context(), sh, layoutPath, out)
			if err != nil {
				return err
			}
			a.logger.Info("canvas rendered", "layout", layoutPath, "out", written)
			return nil
		},
	}

	cmd.Flags().StringVarP(&layoutPath, "layout", "l", "", "Layout file (.yaml, .yml or .csv)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output PNG (defaults to the layout's output or "+imagepkg.ExportFileName+")")
	_ = cmd.MarkFlagRequired("layout")

	return cmd
}

// renderLayout builds the composition described by layoutPath on sh and
// writes the surface. It returns the path written.
func renderLayout(ctx context.Context, sh *shell.Shell, layoutPath, out string) (string, error) {
	l, err := layout.LoadFile(layoutPath)
	if err != nil {
		return "", err
	}
	assets, err := l.Assets(filepath.Dir(layoutPath))
	if err != nil {
		return "", err
	}

	err = sh.Batch(ctx, func(store *composition.Store) {
		for i, it := range store.Add(assets...) {
			idx := store.IndexOf(it.ID)
			store.SetPosition(idx, l.Images[i].Position())
			store.SetSize(idx, l.Images[i].Size())
		}
	})
	if err != nil {
		return "", err
	}

	if out == "" {
		out = l.Output
	}
	if out == "" {
		out = imagepkg.ExportFileName
	}
	if err := util.EnsureDir(filepath.Dir(out)); err != nil {
		return "", err
	}
	fp, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if err := sh.Export(fp); err != nil {
		fp.Close()
		return "", fmt.Errorf("writing %s: %w", out, err)
	}
	return out, fp.Close()
}
