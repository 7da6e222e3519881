package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dkeye/Dialtone/internal/protocol"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Register and wait for calls.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		public, _ := cmd.Flags().GetBool("public")
		autoAccept, _ := cmd.Flags().GetBool("auto-accept")
		echo, _ := cmd.Flags().GetBool("echo")

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		p, err := connect(ctx, echo)
		if err != nil {
			return err
		}
		defer p.Client.Close()

		p.AutoAccept = autoAccept
		p.OnEvent = func(ev protocol.Event) {
			printEvent(ev)
			if ev.Kind == protocol.KindIncomingCall && !autoAccept {
				_ = p.Decline()
			}
		}
		if public {
			if err := p.Client.SetPublic(true); err != nil {
				return err
			}
		}

		err = p.Run(ctx)
		_ = p.Hangup()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	listenCmd.Flags().Bool("public", false, "list the address for discovery")
	listenCmd.Flags().Bool("auto-accept", true, "answer incoming calls automatically")
	listenCmd.Flags().Bool("echo", false, "send received audio back to the caller")
}
