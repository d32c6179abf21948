package cli

import (
	"fmt"
	"strconv"

	"flagrate-rgb/internal/colour"
	"flagrate-rgb/internal/service"
	"github.com/spf13/cobra"
)

var matchCmd = &cobra.Command{
	Use:   "match <r> <g> <b>",
	Short: "Show which strip preset a colour maps to",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseRGB(args)
		if err != nil {
			return err
		}
		_, mapper := pipeline(cfg)
		gray := colour.IsGrayscale(c, cfg.Tuning.Grayscale)
		target := c
		if gray {
			target = colour.White
		}
		led := service.ResolveLED(mapper, target)
		hls := c.HLS()

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "input:     %s %s\n", c.Hex(), c)
		fmt.Fprintf(w, "hls:       h=%d l=%d s=%d\n", hls.H, hls.L, hls.S)
		fmt.Fprintf(w, "grayscale: %t\n", gray)
		fmt.Fprintf(w, "vibrant:   %t\n", colour.IsVibrant(c, cfg.Tuning.Vibrancy))
		fmt.Fprintf(w, "led:       %d %s\n", led.Code, led.Color.Hex())
		fmt.Fprintf(w, "command:   %s\n", service.EncodeCommand(led.Code))
		return nil
	},
}

func parseRGB(args []string) (colour.Color, error) {
	var ch [3]int
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return colour.Color{}, fmt.Errorf("channel %q: %w", a, err)
		}
		ch[i] = n
	}
	return colour.New(ch[0], ch[1], ch[2])
}
