package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/disintegration/imaging"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makstark/studio-web/internal/apperr"
	"github.com/makstark/studio-web/internal/backend"
	"github.com/makstark/studio-web/internal/portfolio/domain"
	"github.com/makstark/studio-web/internal/portfolio/repository"
)

const sid = "session-1"

var categories = []string{"Weddings", "Events", "Films", "Branding", "Merchandise"}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRepo(t *testing.T) *repository.CardRepository {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return repository.NewCardRepository(client, time.Hour)
}

type fakeUploader struct {
	reqs []backend.UploadRequest
	err  error
}

func (u *fakeUploader) UploadBase64Image(_ context.Context, _ string, req backend.UploadRequest) (*backend.UploadResult, error) {
	if u.err != nil {
		return nil, u.err
	}
	u.reqs = append(u.reqs, req)
	return &backend.UploadResult{URL: "https://img.example/" + req.FileName}, nil
}

func newService(t *testing.T, now *time.Time) (*CardService, *repository.CardRepository, *fakeUploader) {
	repo := newRepo(t)
	up := &fakeUploader{}
	svc := NewCardService(repo, up, categories, quietLogger())
	svc.SetClock(func() time.Time { return *now })
	return svc, repo, up
}

func fields(title string) domain.Draft {
	return domain.Draft{Title: title, Category: "Weddings", Description: title + " description", Tags: "a, b"}
}

func withCover(t *testing.T, repo *repository.CardRepository, url string) {
	t.Helper()
	d, err := repo.GetDraft(context.Background(), sid)
	require.NoError(t, err)
	d.Cover = url
	require.NoError(t, repo.SaveDraft(context.Background(), sid, d))
}

func TestPublish_RequiresCover(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	svc, _, _ := newService(t, &now)
	ctx := context.Background()

	_, err := svc.Publish(ctx, sid, fields("Goa"))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	cards, err := svc.Cards(ctx)
	require.NoError(t, err)
	assert.Empty(t, cards)

	// the typed fields survive a rejected publish
	d, err := svc.Draft(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "Goa", d.Title)
}

func TestPublish_CreateEditDelete(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	svc, repo, _ := newService(t, &now)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"One", "Two", "Three"} {
		withCover(t, repo, "https://img/"+title+".jpg")
		card, err := svc.Publish(ctx, sid, fields(title))
		require.NoError(t, err)
		ids = append(ids, card.ID)
	}

	// same millisecond: ids are bumped past the highest
	assert.Equal(t, []int64{now.UnixMilli(), now.UnixMilli() + 1, now.UnixMilli() + 2}, ids)

	cards, err := svc.Cards(ctx)
	require.NoError(t, err)
	require.Len(t, cards, 3)
	assert.Equal(t, "3/14/2025", cards[0].Date)
	assert.Equal(t, []string{"a", "b"}, cards[0].Tags)

	t.Run("edit and republish overwrites in place", func(t *testing.T) {
		d, err := svc.Edit(ctx, sid, ids[1])
		require.NoError(t, err)
		assert.Equal(t, "https://img/Two.jpg", d.Cover)

		edited := fields("Two (edited)")
		card, err := svc.Publish(ctx, sid, edited)
		require.NoError(t, err)
		assert.Equal(t, ids[1], card.ID)

		cards, err := svc.Cards(ctx)
		require.NoError(t, err)
		require.Len(t, cards, 3)
		assert.Equal(t, "Two (edited)", cards[1].Title)
		assert.Equal(t, ids[1], cards[1].ID)

		draft, err := svc.Draft(ctx, sid)
		require.NoError(t, err)
		assert.Zero(t, draft.EditingID)
	})

	t.Run("delete removes exactly one and keeps order", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, ids[1]))

		cards, err := svc.Cards(ctx)
		require.NoError(t, err)
		require.Len(t, cards, 2)
		assert.Equal(t, ids[0], cards[0].ID)
		assert.Equal(t, ids[2], cards[1].ID)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		assert.True(t, apperr.Is(svc.Delete(ctx, 999), apperr.KindNotFound))
		_, err := svc.Edit(ctx, sid, 999)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.NRGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, dataURL string) image.Image {
	t.Helper()
	const prefix = "data:image/jpeg;base64,"
	require.True(t, strings.HasPrefix(dataURL, prefix))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	return img
}

func TestPrepareImage(t *testing.T) {
	t.Run("large images fit 2048", func(t *testing.T) {
		out, err := PrepareImage(bytes.NewReader(pngBytes(t, 4096, 1024)))
		require.NoError(t, err)
		b := decodeDataURL(t, out).Bounds()
		assert.Equal(t, 2048, b.Dx())
		assert.Equal(t, 512, b.Dy())
	})

	t.Run("small images keep their size", func(t *testing.T) {
		out, err := PrepareImage(bytes.NewReader(pngBytes(t, 300, 200)))
		require.NoError(t, err)
		b := decodeDataURL(t, out).Bounds()
		assert.Equal(t, 300, b.Dx())
		assert.Equal(t, 200, b.Dy())
	})

	t.Run("non-images are rejected", func(t *testing.T) {
		_, err := PrepareImage(strings.NewReader("not an image"))
		assert.Error(t, err)
	})
}

func TestUploadImage(t *testing.T) {
	now := time.Now()
	svc, _, up := newService(t, &now)
	ctx := context.Background()

	url, err := svc.UploadImage(ctx, sid, "tok", domain.SlotCover, "cover.png", bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/cover.jpg", url)

	_, err = svc.UploadImage(ctx, sid, "tok", domain.SlotAdditional, "extra one.PNG", bytes.NewReader(pngBytes(t, 10, 10)))
	require.NoError(t, err)

	require.Len(t, up.reqs, 2)
	assert.Equal(t, "portfolio", up.reqs[0].Folder)

	d, err := svc.Draft(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/cover.jpg", d.Cover)
	assert.Equal(t, []string{"https://img.example/extra one.jpg"}, d.Additional)

	require.NoError(t, svc.RemoveImage(ctx, sid, 0))
	d, err = svc.Draft(ctx, sid)
	require.NoError(t, err)
	assert.Empty(t, d.Additional)
}

func TestUploadImage_FailureLeavesDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"detail":"Image host unavailable"}`)
	}))
	t.Cleanup(srv.Close)

	repo := newRepo(t)
	svc := NewCardService(repo, backend.New(srv.URL, 5*time.Second), categories, quietLogger())
	ctx := context.Background()
	withCover(t, repo, "https://img/keep.jpg")

	_, err := svc.UploadImage(ctx, sid, "tok", domain.SlotCover, "new.png", bytes.NewReader(pngBytes(t, 10, 10)))
	assert.Equal(t, "Image host unavailable", apperr.Message(err, ""))

	d, err := svc.Draft(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "https://img/keep.jpg", d.Cover)
}

func TestHub_RelaysEvents(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	svc, repo, _ := newService(t, &now)
	hub := NewHub(repo, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	go hub.Run(ctx, ready)
	<-ready

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	withCover(t, repo, "https://img/c.jpg")
	card, err := svc.Publish(context.Background(), sid, fields("Live"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), card.ID))

	for _, want := range []domain.Action{domain.ActionCreate, domain.ActionDelete} {
		select {
		case ev := <-events:
			assert.Equal(t, want, ev.Action)
			if want == domain.ActionCreate {
				require.NotNil(t, ev.Card)
				assert.Equal(t, "Live", ev.Card.Title)
			} else {
				assert.Equal(t, card.ID, ev.ID)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(domain.Event{Action: domain.ActionDelete, ID: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"action":"delete","id":5}`, string(data))
}
