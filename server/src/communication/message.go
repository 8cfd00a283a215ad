package communication

import (
	"encoding/json"
	"strconv"
)

type MessageType string

const (
	JoinType             MessageType = "join"
	QueueAddType         MessageType = "queue:add"
	QueueRemoveType      MessageType = "queue:remove"
	PlayType             MessageType = "playback:play"
	PauseType            MessageType = "playback:pause"
	SkipType             MessageType = "playback:skip"
	SeekType             MessageType = "playback:seek"
	ChatMessageType      MessageType = "chat:message"
	CrossfadeSetType     MessageType = "crossfade:set"
	RoomStateType        MessageType = "room:state"
	RoomErrorType        MessageType = "room:error"
	QueueUpdatedType     MessageType = "queue:updated"
	PlaybackSyncType     MessageType = "playback:sync"
	UserJoinedType       MessageType = "user:joined"
	UserLeftType         MessageType = "user:left"
	SkipVotesType        MessageType = "skip:votes"
	CrossfadeUpdatedType MessageType = "crossfade:updated"
	UnknownType          MessageType = "unknown"
)

type Message interface {
	Type() MessageType
}

// Seconds tolerates the loose typing of inbound scalar fields: numbers are
// taken as-is, numeric strings are parsed, everything else collapses to zero.
type Seconds float64

func (s *Seconds) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*s = Seconds(value)
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			*s = 0
		} else {
			*s = Seconds(parsed)
		}
	default:
		*s = 0
	}
	return nil
}

// Chars coerces non-string inbound text to the empty string.
type Chars string

func (c *Chars) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if value, ok := v.(string); ok {
		*c = Chars(value)
	} else {
		*c = ""
	}
	return nil
}

type Join struct {
	RoomID   string `json:"roomId"`
	UserName string `json:"userName"`
}

func (j Join) Type() MessageType { return JoinType }

type QueueAdd struct {
	URL string `json:"url"`
}

func (qa QueueAdd) Type() MessageType { return QueueAddType }

type QueueRemove struct {
	TrackID string `json:"trackId"`
}

func (qr QueueRemove) Type() MessageType { return QueueRemoveType }

type Play struct{}

func (p Play) Type() MessageType { return PlayType }

type Pause struct{}

func (p Pause) Type() MessageType { return PauseType }

type Skip struct{}

func (s Skip) Type() MessageType { return SkipType }

type Seek struct {
	Time Seconds `json:"time"`
}

func (s Seek) Type() MessageType { return SeekType }

type ChatMessage struct {
	Text Chars `json:"text"`
}

func (cm ChatMessage) Type() MessageType { return ChatMessageType }

type CrossfadeSet struct {
	Duration Seconds `json:"duration"`
}

func (cs CrossfadeSet) Type() MessageType { return CrossfadeSetType }

type RoomState struct {
	Room   SerializedRoom `json:"room"`
	UserID string         `json:"userId"`
}

func (rs RoomState) Type() MessageType { return RoomStateType }

type RoomError struct {
	Message string `json:"message"`
}

func (re RoomError) Type() MessageType { return RoomErrorType }

type QueueUpdated struct {
	Queue        []Track `json:"queue"`
	CurrentIndex int     `json:"currentIndex"`
}

func (qu QueueUpdated) Type() MessageType { return QueueUpdatedType }

type PlaybackSync struct {
	State        string  `json:"state"`
	CurrentIndex int     `json:"currentIndex"`
	Elapsed      float64 `json:"elapsed"`
	Timestamp    int64   `json:"timestamp"`
	YoutubeID    *string `json:"youtubeId"`
}

func (ps PlaybackSync) Type() MessageType { return PlaybackSyncType }

type UserJoined struct {
	User User `json:"user"`
}

func (uj UserJoined) Type() MessageType { return UserJoinedType }

type UserLeft struct {
	UserID string `json:"userId"`
}

func (ul UserLeft) Type() MessageType { return UserLeftType }

type SkipVotes struct {
	Current int `json:"current"`
	Needed  int `json:"needed"`
}

func (sv SkipVotes) Type() MessageType { return SkipVotesType }

type ChatBroadcast struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

func (cb ChatBroadcast) Type() MessageType { return ChatMessageType }

type CrossfadeUpdated struct {
	Duration float64 `json:"duration"`
}

func (cu CrossfadeUpdated) Type() MessageType { return CrossfadeUpdatedType }

type Unknown struct {
	json.RawMessage
}

func (u Unknown) Type() MessageType { return UnknownType }

// UnmarshalMessage decodes one inbound frame. Unknown types decode to
// Unknown, which the coordinator drops.
func UnmarshalMessage(data []byte) (Message, error) {
	message, err := getMessage(data)
	if err != nil {
		return nil, err
	}

	if err = json.Unmarshal(data, &message); err != nil {
		return nil, err
	}

	return message, nil
}

func getMessage(data []byte) (Message, error) {
	var messageHead struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &messageHead); err != nil {
		return nil, err
	}

	var message Message
	switch messageHead.Type {
	case JoinType:
		message = &Join{}
	case QueueAddType:
		message = &QueueAdd{}
	case QueueRemoveType:
		message = &QueueRemove{}
	case PlayType:
		message = &Play{}
	case PauseType:
		message = &Pause{}
	case SkipType:
		message = &Skip{}
	case SeekType:
		message = &Seek{}
	case ChatMessageType:
		message = &ChatMessage{}
	case CrossfadeSetType:
		message = &CrossfadeSet{}
	default:
		message = &Unknown{}
	}

	return message, nil
}

func MarshalMessage(message Message) ([]byte, error) {
	encodedMessage, err := json.Marshal(message)
	if err != nil {
		return nil, err
	}

	return appendType(encodedMessage, message.Type()), nil
}

func appendType(encodedMessage []byte, messageType MessageType) []byte {
	appendedMessage := string(encodedMessage)
	if appendedMessage == "{}" {
		return []byte(`{"type":"` + string(messageType) + `"}`)
	}
	appendedMessage = appendedMessage[:len(appendedMessage)-1] + `,"type":"` + string(messageType) + `"}`
	return []byte(appendedMessage)
}
