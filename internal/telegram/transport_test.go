package telegram

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rickgao/feedwarden/internal/model"
)

func announcement(id string) model.Announcement {
	return model.Announcement{
		Item:        model.Item{ID: id, Title: "Hello", Link: "https://www.xdc.dev/a/hello"},
		ActionLabel: "Unpublish",
		ActionToken: "retract:" + id,
	}
}

func TestNewBot_MissingToken(t *testing.T) {
	_, err := NewBot(BotConfig{Token: "  "}, testLogger())
	if err != ErrMissingToken {
		t.Errorf("error = %v, want ErrMissingToken", err)
	}
}

func TestNewBot_VerifiesToken(t *testing.T) {
	bot, fake := newTestBot(t)

	if bot.Self.UserName != "warden_bot" {
		t.Errorf("UserName = %q, want %q", bot.Self.UserName, "warden_bot")
	}
	if n := len(fake.callsTo("getMe")); n != 1 {
		t.Errorf("getMe calls = %d, want 1", n)
	}
}

func TestTransport_Send(t *testing.T) {
	bot, fake := newTestBot(t)
	tr := NewTransport(bot, testLogger(), WithLinkPreview(false))

	handle, err := tr.Send(context.Background(), "-100123", announcement("77"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle != "101" {
		t.Errorf("handle = %q, want %q", handle, "101")
	}

	calls := fake.callsTo("sendMessage")
	if len(calls) != 1 {
		t.Fatalf("sendMessage calls = %d, want 1", len(calls))
	}
	form := calls[0]
	if got := form.Get("chat_id"); got != "-100123" {
		t.Errorf("chat_id = %q, want %q", got, "-100123")
	}
	wantText := "Hello - https://www.xdc.dev/a/hello (Article ID: 77)"
	if got := form.Get("text"); got != wantText {
		t.Errorf("text = %q, want %q", got, wantText)
	}
	if got := form.Get("disable_web_page_preview"); got != "true" {
		t.Errorf("disable_web_page_preview = %q, want %q", got, "true")
	}

	var markup struct {
		InlineKeyboard [][]struct {
			Text         string `json:"text"`
			CallbackData string `json:"callback_data"`
		} `json:"inline_keyboard"`
	}
	if err := json.Unmarshal([]byte(form.Get("reply_markup")), &markup); err != nil {
		t.Fatalf("reply_markup: %v", err)
	}
	if len(markup.InlineKeyboard) != 1 || len(markup.InlineKeyboard[0]) != 1 {
		t.Fatalf("keyboard = %+v, want one button", markup.InlineKeyboard)
	}
	button := markup.InlineKeyboard[0][0]
	if button.Text != "Unpublish" || button.CallbackData != "retract:77" {
		t.Errorf("button = %+v, want Unpublish/retract:77", button)
	}
}

func TestTransport_SendRejectsBadInput(t *testing.T) {
	bot, fake := newTestBot(t)
	tr := NewTransport(bot, testLogger())

	if _, err := tr.Send(context.Background(), "@channel", announcement("1")); err == nil {
		t.Error("expected error for non-numeric destination")
	}

	long := announcement("1")
	long.ActionToken = "retract:" + strings.Repeat("9", MaxCallbackData)
	if _, err := tr.Send(context.Background(), "-100", long); err == nil {
		t.Error("expected error for oversized callback data")
	}

	if n := len(fake.callsTo("sendMessage")); n != 0 {
		t.Errorf("sendMessage calls = %d, want 0", n)
	}
}

func TestTransport_SendAPIError(t *testing.T) {
	bot, fake := newTestBot(t)
	fake.fail("sendMessage", "Forbidden: bot was kicked from the group chat")
	tr := NewTransport(bot, testLogger())

	_, err := tr.Send(context.Background(), "-100", announcement("1"))
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "bot was kicked") {
		t.Errorf("error = %v, want Bot API description", err)
	}
}

func TestTransport_Delete(t *testing.T) {
	bot, fake := newTestBot(t)
	tr := NewTransport(bot, testLogger())

	err := tr.Delete(context.Background(), model.MessageRef{Destination: "-100123", Handle: "55"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := fake.callsTo("deleteMessage")
	if len(calls) != 1 {
		t.Fatalf("deleteMessage calls = %d, want 1", len(calls))
	}
	if got := calls[0].Get("message_id"); got != "55" {
		t.Errorf("message_id = %q, want %q", got, "55")
	}
	if got := calls[0].Get("chat_id"); got != "-100123" {
		t.Errorf("chat_id = %q, want %q", got, "-100123")
	}
}

func TestTransport_DeleteFailures(t *testing.T) {
	bot, fake := newTestBot(t)
	tr := NewTransport(bot, testLogger())

	if err := tr.Delete(context.Background(), model.MessageRef{Destination: "-100", Handle: "x"}); err == nil {
		t.Error("expected error for invalid handle")
	}

	fake.fail("deleteMessage", "Bad Request: message to delete not found")
	if err := tr.Delete(context.Background(), model.MessageRef{Destination: "-100", Handle: "5"}); err == nil {
		t.Error("expected error from Bot API")
	}
}

func TestTransport_Acknowledge(t *testing.T) {
	bot, fake := newTestBot(t)
	tr := NewTransport(bot, testLogger())

	if err := tr.Acknowledge(context.Background(), "cb-1", "Article unpublished successfully!"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	calls := fake.callsTo("answerCallbackQuery")
	if len(calls) != 1 {
		t.Fatalf("answerCallbackQuery calls = %d, want 1", len(calls))
	}
	form := calls[0]
	if got := form.Get("callback_query_id"); got != "cb-1" {
		t.Errorf("callback_query_id = %q, want %q", got, "cb-1")
	}
	if got := form.Get("show_alert"); got != "true" {
		t.Errorf("show_alert = %q, want %q", got, "true")
	}
	if got := form.Get("text"); got != "Article unpublished successfully!" {
		t.Errorf("text = %q, want %q", got, "Article unpublished successfully!")
	}
}

func TestTransport_ContextDone(t *testing.T) {
	bot, _ := newTestBot(t)
	tr := NewTransport(bot, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The call may win the race with ctx; either outcome is valid, it must not hang.
	_, _ = tr.Send(ctx, "-100", announcement("1"))
}

func TestParseChatID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"-1001234567890", -1001234567890, false},
		{" 42 ", 42, false},
		{"0", 0, true},
		{"@channel", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseChatID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseChatID(%q) = (%d, %v), want (%d, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
