package notifier

import (
	"net/url"
	"strings"
)

// WhatsAppLink builds a wa.me deep link that opens a chat with number and
// the message prefilled. Spaces are encoded as %20.
func WhatsAppLink(number, message string) string {
	number = strings.TrimPrefix(strings.TrimSpace(number), "+")
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + number + "?text=" + text
}
