package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/leekd123/nutify/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events/stream",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of service state changes, UPS status checks, mode detection and chain restarts",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"service-state":       events.ServiceStateChangedEvent{},
		"ups-status":          events.UPSStatusEvent{},
		"mode-detected":       events.ModeDetectedEvent{},
		"coordinated-restart": events.CoordinatedRestartEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		// Create event channel for this connection
		eventCh := make(chan any, 10)

		// Subscribe to all event types using event bus
		unsubscribers := []func(){
			events.SubscribeToChannel[events.ServiceStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.UPSStatusEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ModeDetectedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.CoordinatedRestartEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Replay the current service states first so a fresh client does
		// not wait for the next transition to learn what is running
		now := time.Now().UTC().Format(time.RFC3339)
		for _, st := range s.sup.Registry.Snapshot() {
			if err := send.Data(events.ServiceStateChangedEvent{
				Service:   st.Name,
				State:     string(st.Status),
				PID:       st.PID,
				Restarts:  st.Restarts,
				Error:     st.LastError,
				Timestamp: now,
			}); err != nil {
				return
			}
		}

		// Keep connection alive and forward events
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				// Send event using Huma's SSE sender with error handling
				if err := send.Data(event); err != nil {
					// Connection failed, clean up and exit
					return
				}
			}
		}
	})
}
