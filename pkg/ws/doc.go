// Package ws is the WebSocket transport for the presence core.
//
// A Gateway owns a presence.State and binds each upgraded connection to it:
// the read pump decodes inbound frames into presence commands and dispatches
// them synchronously (preserving per-connection arrival order), and the write
// pump drains two buffered queues (normal and high priority) with
// non-blocking enqueue so one slow peer never stalls a room broadcast.
// A transport close, read error or heartbeat timeout drives the presence
// disconnect cascade exactly once.
//
// # Basic Usage
//
//	state := presence.New()
//	gateway, err := ws.NewGateway(state,
//	    ws.WithMaxConnections(10000),
//	    ws.WithCheckOriginWhitelist([]string{"https://example.com"}),
//	)
//
//	r.GET("/ws", func(c *gin.Context) {
//	    _ = gateway.HandleUpgrade(c.Writer, c.Request)
//	})
//
//	// graceful shutdown
//	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
//	defer cancel()
//	_ = gateway.Shutdown(ctx)
package ws
