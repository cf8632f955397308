package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// GravatarURL returns the avatar URL for an email address, falling back to
// a generated identicon.
func GravatarURL(email string, size int) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=identicon", hex.EncodeToString(sum[:]), size)
}

// GetDaysSinceJoined counts whole days between joining and now.
func GetDaysSinceJoined(joined, now time.Time) int {
	return int(now.Sub(joined).Hours() / 24)
}
