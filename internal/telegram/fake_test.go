package telegram

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// fakeBotAPI is a minimal Bot API server.
type fakeBotAPI struct {
	mu sync.Mutex

	calls       map[string][]url.Values
	nextMessage int
	failMethod  map[string]string // method -> error description
	updates     []json.RawMessage
}

func newFakeBotAPI() *fakeBotAPI {
	return &fakeBotAPI{
		calls:       make(map[string][]url.Values),
		nextMessage: 100,
		failMethod:  make(map[string]string),
	}
}

func (f *fakeBotAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]

	f.mu.Lock()
	f.calls[method] = append(f.calls[method], r.PostForm)
	desc, fail := f.failMethod[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		fmt.Fprintf(w, `{"ok":false,"error_code":400,"description":%q}`, desc)
		return
	}

	switch method {
	case "getMe":
		io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"warden","username":"warden_bot"}}`)
	case "sendMessage":
		f.mu.Lock()
		f.nextMessage++
		id := f.nextMessage
		f.mu.Unlock()
		fmt.Fprintf(w, `{"ok":true,"result":{"message_id":%d,"date":0,"chat":{"id":%s,"type":"supergroup"},"text":"ok"}}`,
			id, r.PostForm.Get("chat_id"))
	case "deleteMessage", "answerCallbackQuery":
		io.WriteString(w, `{"ok":true,"result":true}`)
	case "getUpdates":
		f.mu.Lock()
		pending := f.updates
		f.updates = nil
		f.mu.Unlock()
		if len(pending) == 0 {
			time.Sleep(10 * time.Millisecond)
		}
		body, _ := json.Marshal(pending)
		if len(pending) == 0 {
			body = []byte("[]")
		}
		fmt.Fprintf(w, `{"ok":true,"result":%s}`, body)
	default:
		fmt.Fprintf(w, `{"ok":false,"error_code":404,"description":"Not Found: method %s"}`, method)
	}
}

func (f *fakeBotAPI) callsTo(method string) []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.calls[method]...)
}

func (f *fakeBotAPI) fail(method, description string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failMethod[method] = description
}

func (f *fakeBotAPI) queueUpdate(raw string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, json.RawMessage(raw))
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestBot connects a bot to a fake Bot API server.
func newTestBot(t *testing.T) (*tgbotapi.BotAPI, *fakeBotAPI) {
	t.Helper()
	fake := newFakeBotAPI()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	bot, err := NewBot(BotConfig{
		Token:    "123:abc",
		Endpoint: srv.URL + "/bot%s/%s",
		Timeout:  2 * time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("NewBot: %v", err)
	}
	return bot, fake
}
