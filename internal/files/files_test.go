package files

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

// fakeObjects implements storage.ObjectStore; presigns fail for paths
// listed in broken.
type fakeObjects struct {
	broken map[string]bool
}

func (f *fakeObjects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	return nil
}

func (f *fakeObjects) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if f.broken[key] {
		return "", errors.New("presign unavailable")
	}
	return "https://example.test/" + key, nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error { return nil }

func TestPresentEntriesDegradesFailedPresigns(t *testing.T) {
	remark := "sin soporte"
	cumple := true
	l := &Ledger{
		objects:       &fakeObjects{broken: map[string]bool{"b/key": true}},
		presignExpiry: time.Minute,
	}
	entries := []Entry{
		{ID: 1, Name: "acta.pdf", Path: "a/key", Cumple: &cumple, Descripcion: &remark},
		{ID: 2, Name: "rut.pdf", Path: "b/key"},
	}
	views := l.presentEntries(context.Background(), entries)
	if len(views) != 2 {
		t.Fatalf("views = %d", len(views))
	}
	if views[0].URL == nil || *views[0].URL != "https://example.test/a/key" {
		t.Fatalf("first url = %v", views[0].URL)
	}
	if views[1].URL != nil {
		t.Fatalf("failed presign must yield a null url, got %v", *views[1].URL)
	}
	if views[0].Cumple == nil || !*views[0].Cumple || views[0].Descripcion == nil {
		t.Fatalf("compliance fields lost: %#v", views[0])
	}
	if views[1].Cumple != nil {
		t.Fatal("unset compliance must stay null")
	}
}
