package engine

import "strings"

// Action token prefixes carried by announcement buttons.
const (
	RetractPrefix = "retract:"

	// legacyRetractPrefix is what the previous bot put on its buttons;
	// messages carrying it may still be displayed.
	legacyRetractPrefix = "unpublish_"
)

// ActionToken returns the retract token for itemID.
func ActionToken(itemID string) string {
	return RetractPrefix + itemID
}

// ParseActionToken extracts the item id from a retract token.
// Malformed tokens return ok=false.
func ParseActionToken(data string) (itemID string, ok bool) {
	switch {
	case strings.HasPrefix(data, RetractPrefix):
		itemID = strings.TrimPrefix(data, RetractPrefix)
	case strings.HasPrefix(data, legacyRetractPrefix):
		itemID = strings.TrimPrefix(data, legacyRetractPrefix)
	default:
		return "", false
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" || strings.ContainsAny(itemID, " \t\r\n:") {
		return "", false
	}
	return itemID, true
}
