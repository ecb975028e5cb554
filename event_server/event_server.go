package event_server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"github.com/paolobietolini/atac-realtime/config"
	"github.com/paolobietolini/atac-realtime/pipelines"
)

// subscriberBuffer bounds how far a slow SSE client may lag before events
// are dropped for it.
const subscriberBuffer = 16

type SubscriberId string

func NewSubscriberId() SubscriberId {
	return SubscriberId(uuid.New().String())
}

type Subscriber struct {
	ID           SubscriberId
	Channel      chan map[string]string
	Subscription map[string]string
}

func NewSubscriber(id SubscriberId, subscription map[string]string) *Subscriber {
	return &Subscriber{
		ID:           id,
		Channel:      make(chan map[string]string, subscriberBuffer),
		Subscription: subscription,
	}
}

func (s *Subscriber) matches(event map[string]string) bool {
	for k, v := range s.Subscription {
		if v != event[k] {
			return false
		}
	}
	return true
}

// EventServer exposes health, per-feed status, an SSE stream of cycle
// outcomes and the metrics handler.
type EventServer struct {
	cfg        config.EventServerConfig
	clients    map[SubscriberId]*Subscriber
	clientsMux sync.RWMutex
	latest     map[config.FeedKind]map[string]string
	latestMux  sync.RWMutex
	router     *httprouter.Router
}

// NewEventServer builds the routes. metrics may be nil.
func NewEventServer(cfg config.EventServerConfig, metrics http.Handler) *EventServer {
	if cfg.Path == "" {
		cfg.Path = "/events"
	}
	es := &EventServer{
		cfg:     cfg,
		clients: make(map[SubscriberId]*Subscriber),
		latest:  make(map[config.FeedKind]map[string]string),
		router:  httprouter.New(),
	}
	es.router.HandlerFunc(http.MethodGet, "/healthz", es.handleHealth)
	es.router.HandlerFunc(http.MethodGet, "/status", es.handleStatus)
	es.router.HandlerFunc(http.MethodGet, cfg.Path, es.handleSSE)
	if metrics != nil {
		es.router.Handler(http.MethodGet, "/metrics", metrics)
	}
	return es
}

func (es *EventServer) Handler() http.Handler {
	return es.router
}

// Serve listens until ctx is cancelled. Open SSE streams end with ctx.
func (es *EventServer) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%s", es.cfg.Port),
		Handler:     es.router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("event server listening", "addr", httpServer.Addr, "path", es.cfg.Path)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := httpServer.Shutdown(context.Background()); err != nil {
			slog.Error("Error shutting down server", "error", err)
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (es *EventServer) Subscribe(subscription map[string]string) *Subscriber {
	es.clientsMux.Lock()
	defer es.clientsMux.Unlock()
	client := NewSubscriber(NewSubscriberId(), subscription)
	es.clients[client.ID] = client
	return client
}

func (es *EventServer) Unsubscribe(client *Subscriber) {
	es.clientsMux.Lock()
	defer es.clientsMux.Unlock()
	if _, ok := es.clients[client.ID]; !ok {
		return
	}
	delete(es.clients, client.ID)
	close(client.Channel)
}

// Publish records o as the latest outcome for its feed kind and broadcasts it.
func (es *EventServer) Publish(o pipelines.Outcome) {
	event := o.Attributes()
	es.latestMux.Lock()
	es.latest[o.Kind] = event
	es.latestMux.Unlock()
	es.Broadcast(event)
}

// Broadcast never blocks; a subscriber with a full buffer misses the event.
func (es *EventServer) Broadcast(event map[string]string) {
	es.clientsMux.RLock()
	defer es.clientsMux.RUnlock()

	for _, client := range es.clients {
		if !client.matches(event) {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			slog.Debug("dropping event for slow subscriber", "subscriber_id", client.ID)
		}
	}
}

func (es *EventServer) Status() map[config.FeedKind]map[string]string {
	es.latestMux.RLock()
	defer es.latestMux.RUnlock()
	out := make(map[config.FeedKind]map[string]string, len(es.latest))
	for k, v := range es.latest {
		out[k] = v
	}
	return out
}

func (es *EventServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (es *EventServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(es.Status()); err != nil {
		slog.Error("failed to encode status", "error", err)
	}
}

func (es *EventServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	subscription := map[string]string{}
	for k, v := range r.URL.Query() {
		subscription[k] = v[0]
	}

	client := es.Subscribe(subscription)
	defer es.Unsubscribe(client)

	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case <-notify:
			return
		case event, ok := <-client.Channel:
			if !ok {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
