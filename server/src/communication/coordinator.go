package communication

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ashgrowen/auxroom/server/src/logger"
	"github.com/ashgrowen/auxroom/server/src/youtube"
)

type connection struct {
	session *Session
	roomID  string
}

// RoomSummary is the read-only view handed to the HTTP layer.
type RoomSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UserCount int    `json:"userCount"`
}

// Coordinator owns every room and the two session indices. All state is
// guarded by one mutex, so room operations are serialized: at most one
// operation mutates a room at any instant, and an operation's broadcasts
// happen before the lock is released.
type Coordinator struct {
	mu            sync.Mutex
	clock         Clock
	fetcher       youtube.Fetcher
	rooms         map[string]*Room
	connections   map[string]connection
	sessionToUser map[uuid.UUID]string
}

func NewCoordinator(clock Clock, fetcher youtube.Fetcher) *Coordinator {
	return &Coordinator{
		clock:         clock,
		fetcher:       fetcher,
		rooms:         make(map[string]*Room),
		connections:   make(map[string]connection),
		sessionToUser: make(map[uuid.UUID]string),
	}
}

// CreateRoom registers an empty room and returns its id and display name.
func (coordinator *Coordinator) CreateRoom(name string) (string, string) {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	id := GenerateID(roomIDLength)
	for {
		if _, exists := coordinator.rooms[id]; !exists {
			break
		}
		id = GenerateID(roomIDLength)
	}

	room := NewRoom(id, name, coordinator.clock)
	coordinator.rooms[id] = room
	roomsActive.Inc()
	logger.Infow("Room created", "room", id, "name", room.Name())

	return id, room.Name()
}

// RoomInfo returns the summary of a live room.
func (coordinator *Coordinator) RoomInfo(roomID string) (RoomSummary, bool) {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	room, ok := coordinator.rooms[roomID]
	if !ok {
		return RoomSummary{}, false
	}

	return RoomSummary{ID: room.ID(), Name: room.Name(), UserCount: room.UserCount()}, true
}

// HandleMessage routes one decoded frame. Malformed frames, unknown types and
// pre-join traffic are dropped without a reply.
func (coordinator *Coordinator) HandleMessage(session *Session, data []byte) {
	message, err := UnmarshalMessage(data)
	if err != nil {
		messagesDropped.Inc()
		return
	}

	if join, ok := message.(*Join); ok {
		messagesInbound.WithLabelValues(string(JoinType)).Inc()
		coordinator.handleJoin(session, *join)
		return
	}

	if _, ok := message.(*Unknown); ok {
		messagesDropped.Inc()
		return
	}

	userID, ok := coordinator.lookupUser(session)
	if !ok {
		messagesDropped.Inc()
		return
	}
	messagesInbound.WithLabelValues(string(message.Type())).Inc()

	// queue:add resolves metadata over HTTP, which must not happen under
	// the coordinator lock.
	if add, ok := message.(*QueueAdd); ok {
		coordinator.handleQueueAdd(session, *add)
		return
	}

	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	room, ok := coordinator.roomOfLocked(userID)
	if !ok {
		return
	}

	switch m := message.(type) {
	case *QueueRemove:
		if room.RemoveTrack(userID, m.TrackID) {
			coordinator.broadcastLocked(room, room.queueMessage(), uuid.Nil)
			coordinator.broadcastLocked(room, room.syncMessage(), uuid.Nil)
		}
	case *Play:
		if room.Play() {
			coordinator.broadcastLocked(room, room.syncMessage(), uuid.Nil)
		}
	case *Pause:
		if room.Pause() {
			coordinator.broadcastLocked(room, room.syncMessage(), uuid.Nil)
		}
	case *Seek:
		if room.Seek(float64(m.Time)) {
			coordinator.broadcastLocked(room, room.syncMessage(), uuid.Nil)
		}
	case *Skip:
		coordinator.handleSkipLocked(room, userID)
	case *ChatMessage:
		if chat, ok := room.BuildChat(userID, string(m.Text)); ok {
			coordinator.broadcastLocked(room, chat, uuid.Nil)
		}
	case *CrossfadeSet:
		duration := room.SetCrossfade(float64(m.Duration))
		coordinator.broadcastLocked(room, CrossfadeUpdated{Duration: duration}, uuid.Nil)
	}
}

// Disconnect tears down whatever user is bound to the session. A session that
// never joined is simply discarded.
func (coordinator *Coordinator) Disconnect(session *Session) {
	coordinator.mu.Lock()
	coordinator.leaveLocked(session)
	coordinator.mu.Unlock()

	session.Close()
}

// Shutdown closes every open session.
func (coordinator *Coordinator) Shutdown(ctx context.Context) {
	coordinator.mu.Lock()
	sessions := make([]*Session, 0, len(coordinator.connections))
	for _, conn := range coordinator.connections {
		sessions = append(sessions, conn.session)
	}
	coordinator.mu.Unlock()

	for _, session := range sessions {
		select {
		case <-ctx.Done():
			return
		default:
			session.Close()
		}
	}
}

func (coordinator *Coordinator) handleJoin(session *Session, join Join) {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	if _, alreadyJoined := coordinator.sessionToUser[session.ID()]; alreadyJoined {
		return
	}

	room, ok := coordinator.rooms[join.RoomID]
	if !ok {
		coordinator.sendToLocked(session, RoomError{Message: "Room not found"})
		return
	}

	userID := GenerateID(userIDLength)
	for {
		if _, exists := coordinator.connections[userID]; !exists {
			break
		}
		userID = GenerateID(userIDLength)
	}

	user := room.AddUser(userID, join.UserName)
	coordinator.connections[userID] = connection{session: session, roomID: room.ID()}
	coordinator.sessionToUser[session.ID()] = userID

	logger.Infow("User joined room", "room", room.ID(), "user", userID, "name", user.Name)

	// room:state reaches the joiner before anyone learns about them
	coordinator.sendToLocked(session, RoomState{Room: room.Serialize(), UserID: userID})
	coordinator.broadcastLocked(room, UserJoined{User: user}, session.ID())
}

func (coordinator *Coordinator) handleQueueAdd(session *Session, add QueueAdd) {
	videoID, ok := youtube.ExtractVideoID(add.URL)
	if !ok {
		coordinator.sendTo(session, RoomError{Message: "Invalid YouTube URL"})
		return
	}

	metadata := coordinator.fetcher.Fetch(videoID)

	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	// the user may have left while the metadata fetch was in flight
	userID, ok := coordinator.sessionToUser[session.ID()]
	if !ok {
		return
	}
	room, ok := coordinator.roomOfLocked(userID)
	if !ok {
		return
	}
	user, ok := room.User(userID)
	if !ok {
		return
	}

	track := Track{
		ID:          GenerateID(trackIDLength),
		YoutubeID:   videoID,
		Title:       metadata.Title,
		Thumbnail:   metadata.Thumbnail,
		AddedBy:     userID,
		AddedByName: user.Name,
	}

	room.AddTrack(track)
	coordinator.broadcastLocked(room, room.queueMessage(), uuid.Nil)
	coordinator.broadcastLocked(room, room.syncMessage(), uuid.Nil)
}

func (coordinator *Coordinator) handleSkipLocked(room *Room, userID string) {
	current, needed, advanced, ok := room.VoteSkip(userID)
	if !ok {
		return
	}

	coordinator.broadcastLocked(room, SkipVotes{Current: current, Needed: needed}, uuid.Nil)
	if advanced {
		coordinator.broadcastLocked(room, room.queueMessage(), uuid.Nil)
		coordinator.broadcastLocked(room, room.syncMessage(), uuid.Nil)
	}
}

// leaveLocked unbinds the session's user, evicts them from their room and
// destroys the room once it empties. Safe to call for unbound sessions.
func (coordinator *Coordinator) leaveLocked(session *Session) {
	userID, ok := coordinator.sessionToUser[session.ID()]
	if !ok {
		return
	}
	delete(coordinator.sessionToUser, session.ID())

	conn, ok := coordinator.connections[userID]
	if !ok {
		return
	}
	delete(coordinator.connections, userID)

	room, ok := coordinator.rooms[conn.roomID]
	if !ok {
		return
	}

	room.RemoveUser(userID)
	logger.Infow("User left room", "room", room.ID(), "user", userID)

	if room.IsEmpty() {
		delete(coordinator.rooms, room.ID())
		roomsActive.Dec()
		logger.Infow("Room destroyed", "room", room.ID())
		return
	}

	coordinator.broadcastLocked(room, UserLeft{UserID: userID}, uuid.Nil)
}

// broadcastLocked fans a message out to every participant of the room except
// the excluded session. Failed deliveries never abort the fan-out; the
// failing sessions are evicted afterwards.
func (coordinator *Coordinator) broadcastLocked(room *Room, message Message, exclude uuid.UUID) {
	payload, err := MarshalMessage(message)
	if err != nil {
		logger.Errorw("Unable to marshal broadcast message", "error", err, "type", message.Type())
		return
	}

	var failed []*Session
	for _, user := range room.Users() {
		conn, ok := coordinator.connections[user.ID]
		if !ok || conn.session.ID() == exclude {
			continue
		}
		if !conn.session.Deliver(payload) {
			failed = append(failed, conn.session)
		}
	}

	for _, session := range failed {
		coordinator.leaveLocked(session)
	}
}

func (coordinator *Coordinator) sendToLocked(session *Session, message Message) {
	payload, err := MarshalMessage(message)
	if err != nil {
		logger.Errorw("Unable to marshal message", "error", err, "type", message.Type())
		return
	}

	if !session.Deliver(payload) {
		coordinator.leaveLocked(session)
	}
}

func (coordinator *Coordinator) sendTo(session *Session, message Message) {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	coordinator.sendToLocked(session, message)
}

func (coordinator *Coordinator) lookupUser(session *Session) (string, bool) {
	coordinator.mu.Lock()
	defer coordinator.mu.Unlock()

	userID, ok := coordinator.sessionToUser[session.ID()]
	return userID, ok
}

func (coordinator *Coordinator) roomOfLocked(userID string) (*Room, bool) {
	conn, ok := coordinator.connections[userID]
	if !ok {
		return nil, false
	}

	room, ok := coordinator.rooms[conn.roomID]
	return room, ok
}
