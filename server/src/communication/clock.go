package communication

import "time"

// Clock is the single time source of the engine. Playback math and message
// timestamps must never mix it with time.Now, so that tests can substitute a
// deterministic implementation.
type Clock interface {
	NowMillis() int64
}

type systemClock struct{}

func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}
