package memory

import (
	"bytes"
	"context"
	"testing"
)

func TestBlobStorePutObjectCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	uri, err := store.PutObject(context.Background(), "Raw Ads/SkinnyFit/ad.mp4", "video/mp4", bytes.NewReader([]byte("content")))
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}
	if uri != "memory://Raw Ads/SkinnyFit/ad.mp4" {
		t.Fatalf("unexpected uri %s", uri)
	}
	got, ok := store.Object("Raw Ads/SkinnyFit/ad.mp4")
	if !ok || string(got) != "content" {
		t.Fatalf("unexpected object %q (found=%v)", got, ok)
	}
	got[0] = 'C'
	again, _ := store.Object("Raw Ads/SkinnyFit/ad.mp4")
	if string(again) != "content" {
		t.Fatalf("expected stored copy to be immutable, got %q", again)
	}
}
