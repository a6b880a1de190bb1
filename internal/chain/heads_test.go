package chain

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"trueAnalytics/internal/model"
)

type numberHashes struct{}

func (numberHashes) BlockHash(_ context.Context, number uint64) (string, error) {
	return fmt.Sprintf("0x%x", number), nil
}

func headServer(t *testing.T, numbers ...string) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req rpcRequest
		if err := conn.ReadJSON(&req); err != nil || req.Method != subscribeMethod {
			return
		}
		_ = conn.WriteJSON(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": "sub-1"})
		for _, n := range numbers {
			_ = conn.WriteJSON(map[string]any{
				"jsonrpc": "2.0",
				"method":  notificationMethod,
				"params": map[string]any{
					"subscription": "sub-1",
					"result":       map[string]any{"parentHash": "0x00", "number": n},
				},
			})
		}
		// Hold the connection open until the client goes away.
		_, _, _ = conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect(t *testing.T, refs <-chan model.BlockRef, n int) []model.BlockRef {
	t.Helper()
	var out []model.BlockRef
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ref, ok := <-refs:
			if !ok {
				t.Fatalf("stream closed after %d refs", len(out))
			}
			out = append(out, ref)
		case <-timeout:
			t.Fatalf("timed out after %d refs", len(out))
		}
	}
	return out
}

func TestHeadSubscriberFillsGaps(t *testing.T) {
	url := headServer(t, "0xa", "0xd", "0xc", "0xe")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewHeadSubscriber(HeadsConfig{URL: url, MaxGap: 100}, numberHashes{})
	refs, _ := sub.Heads(ctx)

	got := collect(t, refs, 5)
	want := []uint64{10, 11, 12, 13, 14}
	for i, n := range want {
		if got[i].Number != n || got[i].Hash != fmt.Sprintf("0x%x", n) {
			t.Fatalf("ref %d: got %+v, want number %d", i, got[i], n)
		}
	}
}

func TestHeadSubscriberBoundsGap(t *testing.T) {
	url := headServer(t, "0x1", "0x14")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewHeadSubscriber(HeadsConfig{URL: url, MaxGap: 2}, numberHashes{})
	refs, _ := sub.Heads(ctx)

	got := collect(t, refs, 4)
	want := []uint64{1, 18, 19, 20}
	for i, n := range want {
		if got[i].Number != n {
			t.Fatalf("ref %d: got %d, want %d", i, got[i].Number, n)
		}
	}
}

func TestHeadSubscriberGivesUp(t *testing.T) {
	sub := NewHeadSubscriber(HeadsConfig{
		URL:            "ws://127.0.0.1:1",
		ReconnectDelay: time.Millisecond,
		MaxReconnects:  2,
	}, numberHashes{})

	_, errs := sub.Heads(context.Background())
	select {
	case err := <-errs:
		if err == nil {
			t.Fatalf("expected error")
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("subscriber did not give up")
	}
}
