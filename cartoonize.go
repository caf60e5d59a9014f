package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/dmorgan81/cartoonbot/internal/datauri"
	"github.com/dmorgan81/cartoonbot/internal/handler"
	"github.com/dmorgan81/cartoonbot/internal/log"
	"github.com/dmorgan81/cartoonbot/internal/share"
	"github.com/samber/do"
	"github.com/spf13/cobra"
)

var outputPath string

type cartoonizer interface {
	Cartoonize(context.Context, handler.Input) (handler.Output, error)
}

var cartoonizeCmd = &cobra.Command{
	Use:   "cartoonize <photo>",
	Short: "Cartoonize a local photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, injector, err := setup(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = injector.Shutdown() }()

		h, err := do.Invoke[*handler.Handler](injector)
		if err != nil {
			return err
		}
		path, err := cartoonizeFile(ctx, h, args[0], outputPath)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	cartoonizeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "where to write the cartoon (default cartoon_image.<ext>)")
}

// cartoonizeFile runs the photo at in through c and writes the cartoon to out,
// or to cartoon_image.<ext> in the working directory when out is empty.
func cartoonizeFile(ctx context.Context, c cartoonizer, in, out string) (string, error) {
	photo, err := os.ReadFile(in)
	if err != nil {
		return "", err
	}

	res, err := c.Cartoonize(ctx, handler.Input{
		PhotoDataURI: datauri.Encode(photo, http.DetectContentType(photo)),
	})
	if err != nil {
		return "", err
	}

	cartoon, err := datauri.Parse(res.CartoonDataURI)
	if err != nil {
		return "", err
	}
	if out == "" {
		out = share.Filename(cartoon.MIMEType)
	}
	if err := os.WriteFile(out, cartoon.Data, 0o644); err != nil {
		return "", err
	}
	log.FromContextOrDiscard(ctx).Info("wrote cartoon", "path", out)
	return out, nil
}
