package communication

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	testRoomID           string = "a1b2c3d4"
	testUserName         string = "testUser"
	testTrackID          string = "t1t2t3t4"
	testURL              string = "https://youtu.be/dQw4w9WgXcQ"
	joinMessage          string = fmt.Sprintf(`{"roomId":"%s","userName":"%s","type":"join"}`, testRoomID, testUserName)
	queueAddMessage      string = fmt.Sprintf(`{"url":"%s","type":"queue:add"}`, testURL)
	queueRemoveMessage   string = fmt.Sprintf(`{"trackId":"%s","type":"queue:remove"}`, testTrackID)
	playMessage          string = `{"type":"playback:play"}`
	pauseMessage         string = `{"type":"playback:pause"}`
	skipMessage          string = `{"type":"playback:skip"}`
	seekMessage          string = `{"time":42.5,"type":"playback:seek"}`
	seekStringMessage    string = `{"time":"13","type":"playback:seek"}`
	seekGarbageMessage   string = `{"time":[1,2],"type":"playback:seek"}`
	chatMessage          string = `{"text":"hello there","type":"chat:message"}`
	chatNonStringMessage string = `{"text":12345,"type":"chat:message"}`
	crossfadeMessage     string = `{"duration":3.7,"type":"crossfade:set"}`
	crossfadeBadMessage  string = `{"duration":"x","type":"crossfade:set"}`
	unknownMessage       string = `{"something":"else","type":"no:such:thing"}`
	malformedMessage     string = `this may not be: a json {}`
)

func TestUnmarshalMessage(t *testing.T) {
	join, err := UnmarshalMessage([]byte(joinMessage))
	testType(t, JoinType, &Join{}, join, err)
	require.Equal(t, testRoomID, join.(*Join).RoomID)
	require.Equal(t, testUserName, join.(*Join).UserName)

	add, err := UnmarshalMessage([]byte(queueAddMessage))
	testType(t, QueueAddType, &QueueAdd{}, add, err)
	require.Equal(t, testURL, add.(*QueueAdd).URL)

	remove, err := UnmarshalMessage([]byte(queueRemoveMessage))
	testType(t, QueueRemoveType, &QueueRemove{}, remove, err)
	require.Equal(t, testTrackID, remove.(*QueueRemove).TrackID)

	play, err := UnmarshalMessage([]byte(playMessage))
	testType(t, PlayType, &Play{}, play, err)

	pause, err := UnmarshalMessage([]byte(pauseMessage))
	testType(t, PauseType, &Pause{}, pause, err)

	skip, err := UnmarshalMessage([]byte(skipMessage))
	testType(t, SkipType, &Skip{}, skip, err)

	seek, err := UnmarshalMessage([]byte(seekMessage))
	testType(t, SeekType, &Seek{}, seek, err)
	require.Equal(t, Seconds(42.5), seek.(*Seek).Time)

	chat, err := UnmarshalMessage([]byte(chatMessage))
	testType(t, ChatMessageType, &ChatMessage{}, chat, err)
	require.Equal(t, Chars("hello there"), chat.(*ChatMessage).Text)

	crossfade, err := UnmarshalMessage([]byte(crossfadeMessage))
	testType(t, CrossfadeSetType, &CrossfadeSet{}, crossfade, err)
	require.Equal(t, Seconds(3.7), crossfade.(*CrossfadeSet).Duration)
}

func testType(t *testing.T, expectedType MessageType, expectedMessage Message, message Message, err error) {
	require.NoError(t, err)
	require.IsType(t, expectedMessage, message)
	require.Equal(t, expectedType, message.Type())
}

func TestUnmarshalTolerantScalars(t *testing.T) {
	seek, err := UnmarshalMessage([]byte(seekStringMessage))
	require.NoError(t, err)
	require.Equal(t, Seconds(13), seek.(*Seek).Time)

	seek, err = UnmarshalMessage([]byte(seekGarbageMessage))
	require.NoError(t, err)
	require.Equal(t, Seconds(0), seek.(*Seek).Time)

	crossfade, err := UnmarshalMessage([]byte(crossfadeBadMessage))
	require.NoError(t, err)
	require.Equal(t, Seconds(0), crossfade.(*CrossfadeSet).Duration)

	chat, err := UnmarshalMessage([]byte(chatNonStringMessage))
	require.NoError(t, err)
	require.Equal(t, Chars(""), chat.(*ChatMessage).Text)
}

func TestUnmarshalUnknown(t *testing.T) {
	message, err := UnmarshalMessage([]byte(unknownMessage))
	require.NoError(t, err)
	require.IsType(t, &Unknown{}, message)

	_, err = UnmarshalMessage([]byte(malformedMessage))
	require.Error(t, err)
}

func TestMarshalMessage(t *testing.T) {
	youtubeID := "dQw4w9WgXcQ"
	payload, err := MarshalMessage(PlaybackSync{
		State:        StatePlaying,
		CurrentIndex: 0,
		Elapsed:      1.5,
		Timestamp:    1000,
		YoutubeID:    &youtubeID,
	})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Equal(t, string(PlaybackSyncType), decoded["type"])
	require.Equal(t, "playing", decoded["state"])
	require.Equal(t, 1.5, decoded["elapsed"])
	require.Equal(t, youtubeID, decoded["youtubeId"])
}

func TestMarshalNullYoutubeID(t *testing.T) {
	payload, err := MarshalMessage(PlaybackSync{State: StatePaused, CurrentIndex: -1})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	require.Contains(t, decoded, "youtubeId")
	require.Nil(t, decoded["youtubeId"])
}

func TestMarshalEmptyStruct(t *testing.T) {
	payload, err := MarshalMessage(Play{})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"playback:play"}`, string(payload))
}
