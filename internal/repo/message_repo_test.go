package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/botdo/go-relay-backend/internal/domain"
)

func TestSaveMessage_IdempotentOnMessageID(t *testing.T) {
	db := newTestDB(t, "messages_idem")
	ctx := context.Background()

	params := SaveMessageParams{
		MessageID:  "1712.0001",
		Platform:   domain.PlatformSlack,
		Direction:  domain.DirectionInbound,
		SenderType: domain.SenderUser,
		Text:       "hola",
		Timestamp:  time.Now().UTC(),
	}
	first, err := SaveMessage(ctx, db, params)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}

	params.Text = "texto distinto en la reentrega"
	second, err := SaveMessage(ctx, db, params)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate message id created a new row")
	}
	// The original row wins; the redelivered payload is discarded.
	if second.Text != "hola" {
		t.Fatalf("second save text = %q", second.Text)
	}

	var count int64
	db.Model(&domain.Message{}).Count(&count)
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
}

func TestListConversation_ChronologicalWithOutOfOrderInserts(t *testing.T) {
	db := newTestDB(t, "messages_order")
	ctx := context.Background()

	ch, err := GetOrCreateChannel(ctx, db, domain.PlatformSlack, "C01", "", nil)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of chronological order: ordering must follow the platform
	// timestamp, not insertion order.
	for _, i := range []int{2, 0, 3, 1} {
		_, err := SaveMessage(ctx, db, SaveMessageParams{
			MessageID:  fmt.Sprintf("1712.%04d", i),
			Platform:   domain.PlatformSlack,
			Direction:  domain.DirectionInbound,
			SenderType: domain.SenderUser,
			Text:       fmt.Sprintf("mensaje %d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			ChannelID:  &ch.ID,
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	msgs, err := ListConversation(ctx, db, ch.ID, 10)
	if err != nil {
		t.Fatalf("ListConversation: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("rows = %d, want 4", len(msgs))
	}
	for i, m := range msgs {
		if want := fmt.Sprintf("mensaje %d", i); m.Text != want {
			t.Fatalf("position %d = %q, want %q", i, m.Text, want)
		}
	}
}

func TestListConversation_LimitKeepsNewest(t *testing.T) {
	db := newTestDB(t, "messages_limit")
	ctx := context.Background()

	ch, err := GetOrCreateChannel(ctx, db, domain.PlatformSlack, "C01", "", nil)
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := SaveMessage(ctx, db, SaveMessageParams{
			MessageID:  fmt.Sprintf("1712.%04d", i),
			Platform:   domain.PlatformSlack,
			Direction:  domain.DirectionInbound,
			SenderType: domain.SenderUser,
			Text:       fmt.Sprintf("mensaje %d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
			ChannelID:  &ch.ID,
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	msgs, err := ListConversation(ctx, db, ch.ID, 2)
	if err != nil {
		t.Fatalf("ListConversation: %v", err)
	}
	// The two newest, still oldest-first.
	if len(msgs) != 2 || msgs[0].Text != "mensaje 3" || msgs[1].Text != "mensaje 4" {
		t.Fatalf("window = %+v", msgs)
	}
}

func TestListConversation_ScopedToChannel(t *testing.T) {
	db := newTestDB(t, "messages_scope")
	ctx := context.Background()

	chA, _ := GetOrCreateChannel(ctx, db, domain.PlatformSlack, "CA", "", nil)
	chB, _ := GetOrCreateChannel(ctx, db, domain.PlatformSlack, "CB", "", nil)

	now := time.Now().UTC()
	for i, ch := range []*domain.Channel{chA, chB} {
		_, err := SaveMessage(ctx, db, SaveMessageParams{
			MessageID:  fmt.Sprintf("scope.%d", i),
			Platform:   domain.PlatformSlack,
			Direction:  domain.DirectionInbound,
			SenderType: domain.SenderUser,
			Text:       "hola",
			Timestamp:  now,
			ChannelID:  &ch.ID,
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	msgs, err := ListConversation(ctx, db, chA.ID, 10)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("channel A rows = %d, %v", len(msgs), err)
	}
}

func TestCountAndListMessages_Filters(t *testing.T) {
	db := newTestDB(t, "messages_filters")
	ctx := context.Background()

	now := time.Now().UTC()
	rows := []struct {
		platform, direction, sender string
	}{
		{domain.PlatformSlack, domain.DirectionInbound, domain.SenderUser},
		{domain.PlatformSlack, domain.DirectionOutbound, domain.SenderBot},
		{domain.PlatformWeb, domain.DirectionInbound, domain.SenderUser},
	}
	for i, r := range rows {
		_, err := SaveMessage(ctx, db, SaveMessageParams{
			MessageID:  fmt.Sprintf("f.%d", i),
			Platform:   r.platform,
			Direction:  r.direction,
			SenderType: r.sender,
			Text:       "x",
			Timestamp:  now.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	if n, _ := CountMessages(ctx, db, "", ""); n != 3 {
		t.Fatalf("all = %d", n)
	}
	if n, _ := CountMessages(ctx, db, domain.PlatformSlack, ""); n != 2 {
		t.Fatalf("slack = %d", n)
	}
	if n, _ := CountMessages(ctx, db, domain.PlatformSlack, domain.DirectionOutbound); n != 1 {
		t.Fatalf("slack outbound = %d", n)
	}

	page, err := ListMessagesPage(ctx, db, "", "", 0, 10)
	if err != nil || len(page) != 3 {
		t.Fatalf("page = %d rows, %v", len(page), err)
	}
	// Newest first.
	if page[0].MessageID != "f.2" {
		t.Fatalf("first row = %q, want newest", page[0].MessageID)
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	db := newTestDB(t, "messages_notfound")
	if _, err := GetMessage(context.Background(), db, "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
