package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"io"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/apperr"
	"github.com/makstark/studio-web/internal/backend"
	"github.com/makstark/studio-web/internal/portfolio/domain"
	"github.com/makstark/studio-web/internal/portfolio/repository"
)

const (
	maxImageSide = 2048
	jpegQuality  = 85
	uploadFolder = "portfolio"

	msgNotImage     = "Please choose an image file"
	msgUploadFailed = "Failed to upload image"
	msgCardNotFound = "Portfolio card not found"
)

// Uploader relays images to the hosting service.
type Uploader interface {
	UploadBase64Image(ctx context.Context, token string, req backend.UploadRequest) (*backend.UploadResult, error)
}

// CardService manages published portfolio cards and per-session drafts.
type CardService struct {
	repo       *repository.CardRepository
	uploader   Uploader
	categories []string
	now        func() time.Time
	log        logrus.FieldLogger
}

// NewCardService creates a card service. categories limits the card
// category; empty allows any.
func NewCardService(repo *repository.CardRepository, uploader Uploader, categories []string, log logrus.FieldLogger) *CardService {
	return &CardService{
		repo:       repo,
		uploader:   uploader,
		categories: categories,
		now:        time.Now,
		log:        log,
	}
}

// SetClock replaces time.Now. Tests only.
func (s *CardService) SetClock(now func() time.Time) { s.now = now }

func (s *CardService) Cards(ctx context.Context) ([]domain.Card, error) {
	return s.repo.List(ctx)
}

func (s *CardService) Draft(ctx context.Context, sessionID string) (*domain.Draft, error) {
	return s.repo.GetDraft(ctx, sessionID)
}

// SaveFields stores the draft's text fields.
func (s *CardService) SaveFields(ctx context.Context, sessionID string, fields domain.Draft) (*domain.Draft, error) {
	d, err := s.repo.GetDraft(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	d.SetFields(fields)
	return d, s.repo.SaveDraft(ctx, sessionID, d)
}

func (s *CardService) SetMode(ctx context.Context, sessionID string, mode domain.Mode) error {
	d, err := s.repo.GetDraft(ctx, sessionID)
	if err != nil {
		return err
	}
	d.Mode = mode
	return s.repo.SaveDraft(ctx, sessionID, d)
}

// UploadImage downsizes the image, relays it to the image host and puts the
// hosted URL into slot. The draft is unchanged on failure.
func (s *CardService) UploadImage(ctx context.Context, sessionID, token string, slot domain.ImageSlot, filename string, r io.Reader) (string, error) {
	dataURL, err := PrepareImage(r)
	if err != nil {
		return "", apperr.Wrap(apperr.KindValidation, msgNotImage, err)
	}

	res, err := s.uploader.UploadBase64Image(ctx, token, backend.UploadRequest{
		Image:    dataURL,
		FileName: jpegName(filename),
		Folder:   uploadFolder,
	})
	if err != nil {
		s.log.WithError(err).WithField("slot", slot).Warn("image upload failed")
		return "", apperr.Wrap(apperr.KindBackend, backend.DetailOr(err, msgUploadFailed), err)
	}

	d, err := s.repo.GetDraft(ctx, sessionID)
	if err != nil {
		return "", err
	}
	switch slot {
	case domain.SlotCover:
		d.Cover = res.URL
	default:
		d.Additional = append(d.Additional, res.URL)
	}
	if err := s.repo.SaveDraft(ctx, sessionID, d); err != nil {
		return "", err
	}
	return res.URL, nil
}

// RemoveImage drops the additional image at index.
func (s *CardService) RemoveImage(ctx context.Context, sessionID string, index int) error {
	d, err := s.repo.GetDraft(ctx, sessionID)
	if err != nil {
		return err
	}
	if !d.RemoveAdditional(index) {
		return apperr.New(apperr.KindNotFound, "Image not found")
	}
	return s.repo.SaveDraft(ctx, sessionID, d)
}

// Publish validates the draft and stores it as a card: a new one, or the
// card being edited overwritten in place. The draft is cleared on success.
func (s *CardService) Publish(ctx context.Context, sessionID string, fields domain.Draft) (*domain.Card, error) {
	d, err := s.SaveFields(ctx, sessionID, fields)
	if err != nil {
		return nil, err
	}
	if err := d.Validate(s.categories); err != nil {
		return nil, err
	}

	now := s.now()
	today := now.Format(domain.DateLayout)
	ev, err := s.repo.Mutate(ctx, func(cards []domain.Card) ([]domain.Card, domain.Event, error) {
		if d.EditingID != 0 {
			for i := range cards {
				if cards[i].ID == d.EditingID {
					card := d.Card(d.EditingID, today)
					cards[i] = card
					return cards, domain.Event{Action: domain.ActionUpdate, Card: &card}, nil
				}
			}
			return nil, domain.Event{}, apperr.New(apperr.KindNotFound, msgCardNotFound)
		}

		card := d.Card(nextID(cards, now.UnixMilli()), today)
		return append(cards, card), domain.Event{Action: domain.ActionCreate, Card: &card}, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"card_id": ev.Card.ID, "action": ev.Action}).Info("portfolio card published")
	if err := s.repo.SaveDraft(ctx, sessionID, domain.NewDraft()); err != nil {
		return nil, err
	}
	return ev.Card, nil
}

// Edit loads the card into the session's draft for update in place.
func (s *CardService) Edit(ctx context.Context, sessionID string, id int64) (*domain.Draft, error) {
	cards, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range cards {
		if c.ID == id {
			d := domain.DraftFromCard(c)
			return d, s.repo.SaveDraft(ctx, sessionID, d)
		}
	}
	return nil, apperr.New(apperr.KindNotFound, msgCardNotFound)
}

// CancelEdit discards the draft.
func (s *CardService) CancelEdit(ctx context.Context, sessionID string) error {
	return s.repo.SaveDraft(ctx, sessionID, domain.NewDraft())
}

// Delete removes exactly the card with id, keeping the others in order.
func (s *CardService) Delete(ctx context.Context, id int64) error {
	_, err := s.repo.Mutate(ctx, func(cards []domain.Card) ([]domain.Card, domain.Event, error) {
		for i := range cards {
			if cards[i].ID == id {
				next := append(cards[:i:i], cards[i+1:]...)
				return next, domain.Event{Action: domain.ActionDelete, ID: id}, nil
			}
		}
		return nil, domain.Event{}, apperr.New(apperr.KindNotFound, msgCardNotFound)
	})
	if err != nil {
		return err
	}
	s.log.WithField("card_id", id).Info("portfolio card deleted")
	return nil
}

// Teardown drops the session's draft. It matches session.TeardownFunc.
func (s *CardService) Teardown(ctx context.Context, sessionID string) error {
	return s.repo.DeleteDraft(ctx, sessionID)
}

// nextID returns candidate, or one past the largest id when candidate is
// already taken or would sort before an existing card.
func nextID(cards []domain.Card, candidate int64) int64 {
	var highest int64
	for _, c := range cards {
		if c.ID > highest {
			highest = c.ID
		}
	}
	if candidate <= highest {
		return highest + 1
	}
	return candidate
}

// PrepareImage decodes an uploaded image, fits it within 2048x2048 and
// returns it as a JPEG data URL.
func PrepareImage(r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	if b := img.Bounds(); b.Dx() > maxImageSide || b.Dy() > maxImageSide {
		img = imaging.Fit(img, maxImageSide, maxImageSide, imaging.Lanczos)
	}
	return encodeJPEG(img)
}

func encodeJPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func jpegName(filename string) string {
	base := strings.TrimSuffix(path.Base(filename), path.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + ".jpg"
}
