package chat

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"livechat/internal/app/presence"
	"livechat/internal/pkg/errs"
	"livechat/internal/pkg/logx"
)

const eventQueueSize = 1024

type eventKind int

const (
	kindConnect eventKind = iota
	kindInbound
	kindReject
	kindDisconnect
)

// roomEvent is one unit of work for the room loop.
type roomEvent struct {
	kind    eventKind
	client  *Client
	inbound Inbound
	err     *errs.CustomError
}

// RoomOptions configures a Room.
type RoomOptions struct {
	// ImageURLs decides which image URLs clients may share. Nil refuses every image.
	ImageURLs ImageURLPolicy

	// Now overrides the clock used for message timestamps.
	Now func() time.Time
}

// Room is the single shared chat room. All connection bookkeeping and fan-out
// happens on the goroutine running Run, which is the only writer of the
// presence registry and of every client's send channel.
type Room struct {
	// open connections keyed by connection id, joined or not.
	clients map[string]*Client

	// display names of joined connections.
	presence *presence.Registry

	events chan roomEvent

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// joined user count mirrored for readers outside the loop.
	online atomic.Int64

	imageURLs ImageURLPolicy
	now       func() time.Time

	logger zerolog.Logger
}

// NewRoom creates a room. Call Run to start processing events.
func NewRoom(opts RoomOptions) *Room {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Room{
		clients:   make(map[string]*Client),
		presence:  presence.NewRegistry(),
		events:    make(chan roomEvent, eventQueueSize),
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
		imageURLs: opts.ImageURLs,
		now:       now,
		logger:    logx.Component("room"),
	}
}

// Run processes events until Stop is called.
func (r *Room) Run() {
	defer close(r.done)
	defer r.teardown()

	r.logger.Info().Msg("Room event loop started.")

	for {
		select {
		case ev := <-r.events:
			r.dispatch(ev)
		case <-r.stopChan:
			r.logger.Info().Msg("Room event loop stopping.")
			return
		}
	}
}

// Stop ends the event loop. It is safe to call more than once.
func (r *Room) Stop() {
	r.stopOnce.Do(func() { close(r.stopChan) })
}

// Wait blocks until Run has returned.
func (r *Room) Wait() {
	<-r.done
}

// OnlineCount returns the number of joined users. Safe from any goroutine.
func (r *Room) OnlineCount() int {
	return int(r.online.Load())
}

// AllowsImageURL reports whether url may appear in an image message.
func (r *Room) AllowsImageURL(url string) bool {
	return r.imageURLs != nil && r.imageURLs(url)
}

// Connect queues a newly opened connection. It returns false once the room has stopped.
func (r *Room) Connect(c *Client) bool {
	return r.submit(roomEvent{kind: kindConnect, client: c})
}

// Receive queues a validated event from c.
func (r *Room) Receive(c *Client, in Inbound) bool {
	return r.submit(roomEvent{kind: kindInbound, client: c, inbound: in})
}

// Reject queues an error reply to c for an event that failed validation.
func (r *Room) Reject(c *Client, err *errs.CustomError) bool {
	return r.submit(roomEvent{kind: kindReject, client: c, err: err})
}

// Disconnect queues the teardown of c.
func (r *Room) Disconnect(c *Client) bool {
	return r.submit(roomEvent{kind: kindDisconnect, client: c})
}

func (r *Room) submit(ev roomEvent) bool {
	select {
	case <-r.stopChan:
		return false
	default:
	}

	select {
	case r.events <- ev:
		return true
	case <-r.stopChan:
		return false
	}
}

// dispatch runs one event. A panic is logged and contained to that event.
func (r *Room) dispatch(ev roomEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Interface("panic", rec).
				Str("connection_id", ev.client.id).
				Msg("Recovered from panic while handling event.")
		}
	}()

	switch ev.kind {
	case kindConnect:
		r.handleConnect(ev.client)
	case kindDisconnect:
		r.handleDisconnect(ev.client)
	case kindReject:
		r.handleReject(ev.client, ev.err)
	case kindInbound:
		if _, open := r.clients[ev.client.id]; !open {
			return
		}
		switch in := ev.inbound.(type) {
		case JoinRequest:
			r.handleJoin(ev.client, in)
		case ChatRequest:
			r.handleChat(ev.client, in)
		case TypingRequest:
			r.handleTyping(ev.client, in)
		default:
			r.logger.Warn().
				Str("connection_id", ev.client.id).
				Str("event", ev.inbound.eventName()).
				Msg("Unhandled inbound event.")
		}
	}
}

func (r *Room) handleConnect(c *Client) {
	if _, exists := r.clients[c.id]; exists {
		r.logger.Warn().Str("connection_id", c.id).Msg("Duplicate connect ignored.")
		return
	}

	r.clients[c.id] = c
	r.logger.Info().
		Str("connection_id", c.id).
		Int("open_connections", len(r.clients)).
		Msg("Connection opened.")

	r.broadcastCount()
}

func (r *Room) handleJoin(c *Client, req JoinRequest) {
	r.presence.Set(c.id, req.Name)
	r.online.Store(int64(r.presence.Size()))

	r.logger.Info().
		Str("connection_id", c.id).
		Str("username", req.Name).
		Int("total_users", r.presence.Size()).
		Msg("User joined.")

	r.broadcast(c, EventUserJoined, joinedNotice(req.Name, r.now()))
	r.broadcastCount()
}

func (r *Room) handleChat(c *Client, req ChatRequest) {
	name, joined := r.presence.Get(c.id)
	if !joined {
		r.logger.Debug().Str("connection_id", c.id).Msg("Chat message from unjoined connection ignored.")
		return
	}

	msg := ChatMessage{
		Username:  name,
		Message:   req.Message,
		Timestamp: formatTimestamp(r.now()),
		Type:      req.Type,
	}
	if req.Type == MessageTypeImage {
		msg.ImageURL = req.ImageURL
		msg.OriginalName = req.OriginalName
	}

	r.logger.Debug().
		Str("username", name).
		Str("type", msg.Type).
		Int("length", len(msg.Message)).
		Msg("Relaying chat message.")

	r.broadcast(nil, EventChatMessage, msg)
}

func (r *Room) handleTyping(c *Client, req TypingRequest) {
	name, joined := r.presence.Get(c.id)
	if !joined {
		return
	}

	r.broadcast(c, EventTyping, TypingNotice{Username: name, IsTyping: req.IsTyping})
}

func (r *Room) handleReject(c *Client, customErr *errs.CustomError) {
	if _, open := r.clients[c.id]; !open || customErr == nil {
		return
	}

	frame, err := encode(EventError, ErrorNotice{Code: customErr.Code, Error: customErr.Message})
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to encode error notice.")
		return
	}
	r.deliver(c, frame)
}

func (r *Room) handleDisconnect(c *Client) {
	if current, open := r.clients[c.id]; !open || current != c {
		return
	}

	delete(r.clients, c.id)
	close(c.send)

	name, joined := r.presence.Get(c.id)
	if !joined {
		r.logger.Info().Str("connection_id", c.id).Msg("Unjoined connection closed.")
		return
	}

	r.presence.Remove(c.id)
	r.online.Store(int64(r.presence.Size()))

	r.logger.Info().
		Str("connection_id", c.id).
		Str("username", name).
		Int("total_users", r.presence.Size()).
		Msg("User left.")

	r.broadcast(c, EventUserLeft, leftNotice(name, r.now()))
	r.broadcastCount()
}

func (r *Room) broadcastCount() {
	r.broadcast(nil, EventUserCount, r.presence.Size())
}

// broadcast sends one event to every open connection except exclude (nil: everyone).
func (r *Room) broadcast(exclude *Client, event string, data any) {
	frame, err := encode(event, data)
	if err != nil {
		r.logger.Error().Err(err).Str("event", event).Msg("Error marshaling event for broadcast.")
		return
	}

	for _, c := range r.clients {
		if c == exclude {
			continue
		}
		r.deliver(c, frame)
	}
}

// deliver queues frame without blocking; a full queue drops it for that connection.
func (r *Room) deliver(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		r.logger.Warn().
			Str("connection_id", c.id).
			Int("queue_len", len(c.send)).
			Msg("Client send queue full, dropping event.")
	}
}

// teardown closes every remaining send channel so the write pumps close their sockets.
func (r *Room) teardown() {
	for id, c := range r.clients {
		close(c.send)
		delete(r.clients, id)
		r.presence.Remove(id)
	}
	r.online.Store(0)
	r.logger.Info().Msg("Room closed all connections.")
}
