package cli

import (
	"fmt"
	"strconv"
	"time"

	"flagrate-rgb/internal/device"
	"flagrate-rgb/internal/service"
	"github.com/spf13/cobra"
)

var (
	sendPort string

	portsCmd = &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := device.Ports()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	sendCmd = &cobra.Command{
		Use:   "send <code>",
		Short: "Send one preset code to the strip controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil || code < 0 {
				return fmt.Errorf("invalid code %q", args[0])
			}
			port := cfg.SerialPort
			if sendPort != "" {
				port = sendPort
			}
			arduino, err := device.Open(port, cfg.SerialBaud, time.Duration(cfg.SerialSettleMS)*time.Millisecond)
			if err != nil {
				return err
			}
			defer arduino.Close()
			command := service.EncodeCommand(code)
			if err := arduino.Send(cmd.Context(), command); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s to %s\n", command, port)
			return nil
		},
	}
)

func init() {
	sendCmd.Flags().StringVar(&sendPort, "port", "", "serial port (overrides SERIAL_PORT)")
}
