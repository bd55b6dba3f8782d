package cli

import (
	"context"

	"github.com/carelink/signal-relay/internal/config"
	"github.com/carelink/signal-relay/internal/relayclient"
	"github.com/carelink/signal-relay/internal/ui"
)

// connection bundles a relay client with its event handler.
type connection struct {
	client  *relayclient.Client
	handler *relayclient.Handler
}

func connect(ctx context.Context, cfg *config.Client) (*connection, error) {
	stop := ui.RunConnectionSpinner("Connecting to relay...")
	client, err := relayclient.Dial(ctx, cfg.RelayURL, nil)
	stop()
	if err != nil {
		return nil, wrap("connect to relay", err)
	}

	handler := relayclient.NewHandler(client)
	go handler.Start()

	return &connection{client: client, handler: handler}, nil
}

func (c *connection) Close() {
	c.handler.Close()
	c.client.Close()
}
