package communication

import (
	"math"
	"strings"
)

const (
	StatePlaying string = "playing"
	StatePaused  string = "paused"

	maxRoomNameLength int = 64
	maxUserNameLength int = 24
	maxChatLength     int = 500

	maxCrossfadeSeconds float64 = 8.0

	// beyond this a seek target would overflow the millisecond anchor
	maxSeekSeconds float64 = 1e9

	defaultUserName string = "Anonymous"
)

// Avatar colors assigned round-robin by join order.
var avatarPalette = []string{
	"#FF5722", "#FF9800", "#FFC107", "#4CAF50", "#2196F3", "#9C27B0",
	"#E91E63", "#00BCD4", "#8BC34A", "#FF5252", "#69F0AE", "#40C4FF",
}

type Track struct {
	ID          string  `json:"id"`
	YoutubeID   string  `json:"youtubeId"`
	Title       string  `json:"title"`
	Thumbnail   string  `json:"thumbnail"`
	Duration    float64 `json:"duration"`
	AddedBy     string  `json:"addedBy"`
	AddedByName string  `json:"addedByName"`
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type SerializedRoom struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	HostID            string  `json:"hostId"`
	Queue             []Track `json:"queue"`
	CurrentIndex      int     `json:"currentIndex"`
	PlaybackState     string  `json:"playbackState"`
	Elapsed           float64 `json:"elapsed"`
	StartedAt         int64   `json:"startedAt"`
	Users             []User  `json:"users"`
	SkipVotes         int     `json:"skipVotes"`
	SkipNeeded        int     `json:"skipNeeded"`
	CrossfadeDuration float64 `json:"crossfadeDuration"`
}

// Room owns all mutable state of one listening session. It performs no I/O
// and is not safe for concurrent use; the coordinator serializes access.
type Room struct {
	id            string
	name          string
	createdAt     int64
	hostID        string
	queue         []Track
	currentIndex  int
	playbackState string
	startedAt     int64
	elapsed       float64
	users         map[string]*User
	userOrder     []string
	skipVotes     map[string]struct{}
	crossfade     float64
	clock         Clock
}

func NewRoom(id string, name string, clock Clock) *Room {
	name = truncate(strings.TrimSpace(name), maxRoomNameLength)
	if name == "" {
		name = "Room " + id
	}

	return &Room{
		id:            id,
		name:          name,
		createdAt:     clock.NowMillis(),
		queue:         make([]Track, 0),
		currentIndex:  -1,
		playbackState: StatePaused,
		users:         make(map[string]*User),
		userOrder:     make([]string, 0),
		skipVotes:     make(map[string]struct{}),
		clock:         clock,
	}
}

func (room *Room) ID() string {
	return room.id
}

func (room *Room) Name() string {
	return room.name
}

func (room *Room) HostID() string {
	return room.hostID
}

func (room *Room) UserCount() int {
	return len(room.users)
}

func (room *Room) IsEmpty() bool {
	return len(room.users) == 0
}

// Position is the authoritative track position in seconds: derived from the
// start anchor while playing, from the stored elapsed while paused.
func (room *Room) Position() float64 {
	if room.playbackState == StatePlaying {
		return float64(room.clock.NowMillis()-room.startedAt) / 1000
	}

	return room.elapsed
}

func (room *Room) Serialize() SerializedRoom {
	return SerializedRoom{
		ID:                room.id,
		Name:              room.name,
		HostID:            room.hostID,
		Queue:             append(make([]Track, 0, len(room.queue)), room.queue...),
		CurrentIndex:      room.currentIndex,
		PlaybackState:     room.playbackState,
		Elapsed:           room.Position(),
		StartedAt:         room.startedAt,
		Users:             room.Users(),
		SkipVotes:         len(room.skipVotes),
		SkipNeeded:        room.skipNeeded(),
		CrossfadeDuration: room.crossfade,
	}
}

func (room *Room) User(userID string) (User, bool) {
	user, ok := room.users[userID]
	if !ok {
		return User{}, false
	}

	return *user, true
}

// Users returns the participants in join order.
func (room *Room) Users() []User {
	users := make([]User, 0, len(room.userOrder))
	for _, id := range room.userOrder {
		users = append(users, *room.users[id])
	}

	return users
}

// AddUser registers a participant, assigns the avatar color by join order and
// makes the first joiner the host.
func (room *Room) AddUser(userID string, userName string) User {
	userName = truncate(strings.TrimSpace(userName), maxUserNameLength)
	if userName == "" {
		userName = defaultUserName
	}

	user := User{
		ID:    userID,
		Name:  userName,
		Color: avatarPalette[len(room.users)%len(avatarPalette)],
	}

	if len(room.users) == 0 {
		room.hostID = userID
	}

	room.users[userID] = &user
	room.userOrder = append(room.userOrder, userID)

	return user
}

// RemoveUser evicts a participant and their skip vote. The host role migrates
// to the earliest remaining joiner.
func (room *Room) RemoveUser(userID string) {
	if _, ok := room.users[userID]; !ok {
		return
	}

	delete(room.users, userID)
	delete(room.skipVotes, userID)
	for i, id := range room.userOrder {
		if id == userID {
			room.userOrder = append(room.userOrder[:i], room.userOrder[i+1:]...)
			break
		}
	}

	if room.hostID == userID {
		room.hostID = ""
		if len(room.userOrder) > 0 {
			room.hostID = room.userOrder[0]
		}
	}
}

// Play resumes from the stored elapsed position. Returns false when nothing
// is scheduled or playback is already running.
func (room *Room) Play() bool {
	if room.currentIndex < 0 || room.playbackState == StatePlaying {
		return false
	}

	room.startedAt = room.clock.NowMillis() - int64(room.elapsed*1000)
	room.playbackState = StatePlaying

	return true
}

// Pause freezes the virtual clock into elapsed.
func (room *Room) Pause() bool {
	if room.playbackState != StatePlaying {
		return false
	}

	room.elapsed = float64(room.clock.NowMillis()-room.startedAt) / 1000
	room.playbackState = StatePaused

	return true
}

// Seek moves the position of the current track. Negative, non-finite and
// overflow-scale targets collapse to 0.
func (room *Room) Seek(seconds float64) bool {
	if room.currentIndex < 0 {
		return false
	}

	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 || seconds > maxSeekSeconds {
		seconds = 0
	}

	if room.playbackState == StatePlaying {
		room.startedAt = room.clock.NowMillis() - int64(seconds*1000)
	} else {
		room.elapsed = seconds
	}

	return true
}

func (room *Room) startTrack(index int) {
	room.currentIndex = index
	room.elapsed = 0
	room.startedAt = room.clock.NowMillis()
	room.playbackState = StatePlaying
	room.skipVotes = make(map[string]struct{})
}

func (room *Room) stopAll() {
	room.currentIndex = -1
	room.playbackState = StatePaused
	room.elapsed = 0
	room.skipVotes = make(map[string]struct{})
}

// AddTrack appends to the queue and starts playback when nothing is
// scheduled.
func (room *Room) AddTrack(track Track) {
	room.queue = append(room.queue, track)
	if room.currentIndex == -1 {
		room.startTrack(0)
	}
}

// RemoveTrack removes the identified track when the requester is the host or
// the submitter. Returns false when nothing changed.
//
// When the currently playing slot is removed, whichever track ends up in the
// pointed-at slot (the slid-in successor, or the new last track if the end
// was removed) restarts from zero.
func (room *Room) RemoveTrack(userID string, trackID string) bool {
	index := -1
	for i, track := range room.queue {
		if track.ID == trackID {
			index = i
			break
		}
	}
	if index == -1 {
		return false
	}

	if userID != room.hostID && userID != room.queue[index].AddedBy {
		return false
	}

	room.queue = append(room.queue[:index], room.queue[index+1:]...)

	switch {
	case index < room.currentIndex:
		room.currentIndex--
	case index == room.currentIndex:
		if len(room.queue) == 0 {
			room.stopAll()
		} else {
			if room.currentIndex >= len(room.queue) {
				room.currentIndex = len(room.queue) - 1
			}
			room.elapsed = 0
			room.startedAt = room.clock.NowMillis()
			room.playbackState = StatePlaying
			room.skipVotes = make(map[string]struct{})
		}
	}

	return true
}

// VoteSkip records a vote against the current track. advanced reports whether
// the majority threshold was met and the queue moved on.
func (room *Room) VoteSkip(userID string) (current int, needed int, advanced bool, ok bool) {
	if room.currentIndex == -1 {
		return 0, 0, false, false
	}

	room.skipVotes[userID] = struct{}{}
	current = len(room.skipVotes)
	needed = room.skipNeeded()

	if current >= needed {
		room.NextTrack()
		advanced = true
	}

	return current, needed, advanced, true
}

// NextTrack advances past the current track, stopping at the end of the
// queue.
func (room *Room) NextTrack() {
	room.skipVotes = make(map[string]struct{})

	switch {
	case len(room.queue) == 0:
		room.stopAll()
	case room.currentIndex < len(room.queue)-1:
		room.startTrack(room.currentIndex + 1)
	default:
		room.stopAll()
	}
}

func (room *Room) skipNeeded() int {
	return (len(room.users) + 1) / 2
}

// BuildChat validates and stamps a chat message. Empty text after trimming
// yields nothing.
func (room *Room) BuildChat(userID string, text string) (ChatBroadcast, bool) {
	user, exists := room.users[userID]
	if !exists {
		return ChatBroadcast{}, false
	}

	text = truncate(strings.TrimSpace(text), maxChatLength)
	if text == "" {
		return ChatBroadcast{}, false
	}

	return ChatBroadcast{
		UserID:    userID,
		UserName:  user.Name,
		Text:      text,
		Timestamp: room.clock.NowMillis(),
	}, true
}

// SetCrossfade clamps and stores the crossfade setting. The server never acts
// on it; clients do.
func (room *Room) SetCrossfade(seconds float64) float64 {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	if seconds > maxCrossfadeSeconds {
		seconds = maxCrossfadeSeconds
	}

	room.crossfade = seconds
	return seconds
}

func (room *Room) queueMessage() QueueUpdated {
	return QueueUpdated{
		Queue:        append(make([]Track, 0, len(room.queue)), room.queue...),
		CurrentIndex: room.currentIndex,
	}
}

func (room *Room) syncMessage() PlaybackSync {
	var youtubeID *string
	if room.currentIndex >= 0 && room.currentIndex < len(room.queue) {
		id := room.queue[room.currentIndex].YoutubeID
		youtubeID = &id
	}

	return PlaybackSync{
		State:        room.playbackState,
		CurrentIndex: room.currentIndex,
		Elapsed:      room.Position(),
		Timestamp:    room.clock.NowMillis(),
		YoutubeID:    youtubeID,
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit])
}
