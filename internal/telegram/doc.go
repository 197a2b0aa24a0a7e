// Package telegram delivers announcements through the Telegram Bot API and
// turns inline button presses into model.Action values.
//
// Destinations are numeric chat ids. Message handles are Telegram message
// ids rendered as decimal strings.
package telegram
