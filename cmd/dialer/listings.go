package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dkeye/Dialtone/internal/client"
	"github.com/dkeye/Dialtone/internal/protocol"
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Print the publicly listed addresses.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		c, err := client.Dial(ctx, viper.GetString(serverURLKey))
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.RequestListings(); err != nil {
			return err
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ev, ok := <-c.Events():
				if !ok {
					return client.ErrClosed
				}
				if ev.Kind != protocol.KindPublicListings {
					continue
				}
				if len(ev.Listing) == 0 {
					fmt.Println("no public addresses")
					return nil
				}
				printEvent(ev)
				return nil
			}
		}
	},
}
