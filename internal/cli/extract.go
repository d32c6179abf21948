package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/model"
	"flagrate-rgb/internal/service"
	"github.com/spf13/cobra"
)

var (
	extractJSON bool

	extractCmd = &cobra.Command{
		Use:   "extract <image path or URL>",
		Short: "Print the palette, main colour and strip command for an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := service.NewImageLoader(cfg.HTTPTimeout())
			img, err := loader.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			extractor, mapper := pipeline(cfg)
			palette, err := extractor.ExtractPalette(img)
			if err != nil {
				return err
			}
			main := extractor.MainColor(palette)
			led := service.ResolveLED(mapper, main)
			return printExtraction(cmd.OutOrStdout(), palette, main, led, extractJSON)
		},
	}
)

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print JSON")
}

func printExtraction(w io.Writer, palette []model.PaletteEntry, main colour.Color, led model.LEDMatch, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"palette":    palette,
			"main_color": main,
			"led":        led,
			"command":    service.EncodeCommand(led.Code),
		})
	}
	for i, p := range palette {
		mark := ""
		if p.Grayscale {
			mark = " (grayscale)"
		}
		fmt.Fprintf(w, "%d. %s %s%s\n", i+1, p.Color.Hex(), p.Color, mark)
	}
	fmt.Fprintf(w, "main:    %s %s\n", main.Hex(), main)
	fmt.Fprintf(w, "led:     %d %s\n", led.Code, led.Color.Hex())
	fmt.Fprintf(w, "command: %s\n", service.EncodeCommand(led.Code))
	return nil
}
