package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/botdo/go-relay-backend/internal/domain"
)

func TestGetOrCreateChannel_CreateThenRefresh(t *testing.T) {
	db := newTestDB(t, "channels_create")
	ctx := context.Background()

	ch, err := GetOrCreateChannel(ctx, db, domain.PlatformSlack, "C01", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !ch.IsActive {
		t.Fatalf("new channel should be active")
	}

	named, err := GetOrCreateChannel(ctx, db, domain.PlatformSlack, "C01", "soporte", nil)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if named.ID != ch.ID || named.Name != "soporte" {
		t.Fatalf("refresh = %+v", named)
	}

	// Empty name must not erase the stored one.
	again, err := GetOrCreateChannel(ctx, db, domain.PlatformSlack, "C01", "", nil)
	if err != nil || again.Name != "soporte" {
		t.Fatalf("name clobbered: %+v, %v", again, err)
	}
}

func TestGetChannel_NotFound(t *testing.T) {
	db := newTestDB(t, "channels_notfound")
	if _, err := GetChannel(context.Background(), db, "missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCountAndListChannels(t *testing.T) {
	db := newTestDB(t, "channels_list")
	ctx := context.Background()

	for _, id := range []string{"C01", "C02"} {
		if _, err := GetOrCreateChannel(ctx, db, domain.PlatformSlack, id, "", nil); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	if _, err := GetOrCreateChannel(ctx, db, domain.PlatformWhatsApp, "W01", "", nil); err != nil {
		t.Fatalf("seed whatsapp: %v", err)
	}

	total, err := CountChannels(ctx, db, "")
	if err != nil || total != 3 {
		t.Fatalf("CountChannels = %d, %v", total, err)
	}
	page, err := ListChannelsPage(ctx, db, domain.PlatformSlack, 0, 10)
	if err != nil || len(page) != 2 {
		t.Fatalf("ListChannelsPage = %d rows, %v", len(page), err)
	}
}

func TestCreateChannel_DuplicateIsError(t *testing.T) {
	db := newTestDB(t, "channels_create_strict")
	ctx := context.Background()

	ch, err := CreateChannel(ctx, db, domain.PlatformSlack, "C42", "soporte", nil)
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if ch.ID == "" || !ch.IsActive {
		t.Fatalf("created = %+v", ch)
	}

	if _, err := CreateChannel(ctx, db, domain.PlatformSlack, "C42", "", nil); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate err = %v, want ErrDuplicate", err)
	}
}
