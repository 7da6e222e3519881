package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dkeye/Dialtone/internal/client"
	"github.com/dkeye/Dialtone/internal/protocol"
)

var callCmd = &cobra.Command{
	Use:   "call <address>",
	Short: "Call an address and stay on the line until interrupted.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := args[0]
		duration, _ := cmd.Flags().GetDuration("duration")

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if duration > 0 {
			ctx, cancel = context.WithTimeout(ctx, duration)
			defer cancel()
		}

		p, err := connect(ctx, false)
		if err != nil {
			return err
		}
		defer p.Client.Close()

		var started atomic.Int64
		done := make(chan error, 1)
		finish := func(err error) {
			select {
			case done <- err:
			default:
			}
		}
		p.OnEvent = func(ev protocol.Event) {
			printEvent(ev)
			switch {
			case ev.Kind == protocol.KindCallAnswered && ev.Accepted:
				started.Store(time.Now().UnixNano())
			case ev.Kind == protocol.KindCallAnswered, ev.Kind == protocol.KindCallFailed:
				finish(fmt.Errorf("call to %s not established", target))
			case ev.Kind == protocol.KindCallEnded && ev.ByAddress == target:
				finish(nil)
			}
		}

		runErr := make(chan error, 1)
		go func() { runErr <- p.Run(ctx) }()
		if err := p.Call(target); err != nil {
			return err
		}

		select {
		case err = <-done:
		case err = <-runErr:
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				err = nil
			}
		}
		if ns := started.Load(); ns != 0 {
			fmt.Printf("call lasted %s\n", time.Since(time.Unix(0, ns)).Round(time.Second))
		}
		if st, _ := p.Line.State(); st != client.StateIdle {
			_ = p.Hangup()
		}
		return err
	},
}

func init() {
	callCmd.Flags().Duration("duration", 0, "hang up after this long, 0 to wait for interrupt")
}
