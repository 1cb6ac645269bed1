package auth

import (
	"crypto/md5"
	"fmt"
	"strings"
)

// GravatarURL returns the Gravatar image URL for an email address,
// falling back to a generated identicon for addresses without one.
func GravatarURL(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	hash := md5.Sum([]byte(normalized))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%x?d=identicon", hash)
}
