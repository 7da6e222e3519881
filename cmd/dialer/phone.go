package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/dkeye/Dialtone/internal/adapters/rtc"
	"github.com/dkeye/Dialtone/internal/client"
	"github.com/dkeye/Dialtone/internal/core"
	"github.com/dkeye/Dialtone/internal/protocol"
)

func webrtcConfig() webrtc.Configuration {
	stun := viper.GetString(stunKey)
	if stun == "" {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{ICEServers: []webrtc.ICEServer{{URLs: []string{stun}}}}
}

// connect dials the server and registers the configured address.
func connect(ctx context.Context, echo bool) (*client.Phone, error) {
	addr := viper.GetString(addressKey)
	if addr == "" {
		return nil, errors.New("an address is required (--address)")
	}
	c, err := client.Dial(ctx, viper.GetString(serverURLKey))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", viper.GetString(serverURLKey), err)
	}
	cfg := webrtcConfig()
	p := client.NewPhone(c, func() (core.MediaNegotiator, error) {
		return rtc.NewPeerMedia(cfg, addr, echo)
	})

	if err := c.Register(addr); err != nil {
		_ = c.Close()
		return nil, err
	}
	for ev := range c.Events() {
		switch ev.Kind {
		case protocol.KindRegistrationSuccess:
			log.Info().Str("module", "dialer").Str("address", ev.Address).Msg("registered")
			return p, nil
		case protocol.KindRegistrationFailed:
			_ = c.Close()
			return nil, fmt.Errorf("register %s: %s (%s)", addr, ev.Reason, ev.Code)
		}
	}
	return nil, client.ErrClosed
}

func printEvent(ev protocol.Event) {
	switch ev.Kind {
	case protocol.KindUserStatusChange:
		state := "offline"
		if ev.Online {
			state = "online"
		}
		fmt.Printf("%s is %s\n", ev.Address, state)
	case protocol.KindIncomingCall:
		fmt.Printf("incoming call from %s\n", ev.FromAddress)
	case protocol.KindCallAnswered:
		if ev.Accepted {
			fmt.Printf("%s answered\n", ev.ByAddress)
		} else {
			fmt.Printf("%s declined\n", ev.ByAddress)
		}
	case protocol.KindCallEnded:
		fmt.Printf("call ended by %s\n", ev.ByAddress)
	case protocol.KindPublicListings:
		fmt.Println(strings.Join(ev.Listing, "\n"))
	default:
		if ev.Failed() {
			fmt.Fprintf(os.Stderr, "%s: %s (%s)\n", ev.Kind, ev.Reason, ev.Code)
		}
	}
}
