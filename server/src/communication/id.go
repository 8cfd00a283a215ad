package communication

import (
	"crypto/rand"

	"github.com/ashgrowen/auxroom/server/src/logger"
)

const (
	idAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

	roomIDLength  int = 8
	userIDLength  int = 10
	trackIDLength int = 8
)

// GenerateID returns a random URL-safe id of the given length.
func GenerateID(length int) string {
	buffer := make([]byte, length)
	_, err := rand.Read(buffer)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is gone
		logger.Fatalw("Failed to read random bytes", "error", err)
	}

	for i, b := range buffer {
		buffer[i] = idAlphabet[int(b)%len(idAlphabet)]
	}

	return string(buffer)
}
