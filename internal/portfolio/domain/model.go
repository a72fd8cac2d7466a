package domain

import (
	"strings"

	"github.com/makstark/studio-web/internal/apperr"
	"github.com/makstark/studio-web/internal/content"
)

const (
	// DateLayout is the default card date format, e.g. 3/14/2025.
	DateLayout   = "1/2/2006"
	notAvailable = "N/A"

	msgMissingFields   = "Please fill in all required fields and upload a cover image"
	msgUnknownCategory = "Please choose a valid category"
)

// Card is an operator-published portfolio project.
type Card struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Image       string   `json:"image"`
	Description string   `json:"description"`
	Client      string   `json:"client"`
	Date        string   `json:"date"`
	Location    string   `json:"location"`
	Details     string   `json:"details"`
	Gallery     []string `json:"gallery"`
	Tags        []string `json:"tags"`
}

// Project returns the card as a public portfolio project.
func (c Card) Project() content.Project {
	return content.Project(c)
}

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Event announces a change to the published card list.
type Event struct {
	Action Action `json:"action"`
	Card   *Card  `json:"card,omitempty"`
	ID     int64  `json:"id,omitempty"`
}

type Mode string

const (
	ModeUpload Mode = "upload"
	ModeManage Mode = "manage"
)

// ImageSlot says where an uploaded image goes.
type ImageSlot string

const (
	SlotCover      ImageSlot = "cover"
	SlotAdditional ImageSlot = "additional"
)

func ParseSlot(s string) (ImageSlot, bool) {
	switch ImageSlot(s) {
	case SlotCover, SlotAdditional:
		return ImageSlot(s), true
	}
	return "", false
}

// Draft is the card being composed in the upload form.
type Draft struct {
	Title       string   `json:"title" form:"title"`
	Category    string   `json:"category" form:"category"`
	Description string   `json:"description" form:"description"`
	Client      string   `json:"client" form:"client"`
	Date        string   `json:"date" form:"date"`
	Location    string   `json:"location" form:"location"`
	Details     string   `json:"details" form:"details"`
	Tags        string   `json:"tags" form:"tags"`
	Cover       string   `json:"cover" form:"-"`
	Additional  []string `json:"additional" form:"-"`
	// EditingID is the card being updated in place; zero when creating.
	EditingID int64 `json:"editing_id,omitempty" form:"-"`
	Mode      Mode  `json:"mode" form:"-"`
}

func NewDraft() *Draft {
	return &Draft{Mode: ModeUpload, Additional: []string{}}
}

// SetFields copies the operator-editable text fields from in, keeping the
// images, edit target and mode.
func (d *Draft) SetFields(in Draft) {
	d.Title = in.Title
	d.Category = in.Category
	d.Description = in.Description
	d.Client = in.Client
	d.Date = in.Date
	d.Location = in.Location
	d.Details = in.Details
	d.Tags = in.Tags
}

// RemoveAdditional drops the additional image at index i.
func (d *Draft) RemoveAdditional(i int) bool {
	if i < 0 || i >= len(d.Additional) {
		return false
	}
	d.Additional = append(d.Additional[:i:i], d.Additional[i+1:]...)
	return true
}

// Validate checks the fields a card needs before it can be published.
func (d Draft) Validate(categories []string) error {
	var missing []string
	if d.Title == "" {
		missing = append(missing, "title")
	}
	if d.Category == "" {
		missing = append(missing, "category")
	}
	if d.Description == "" {
		missing = append(missing, "description")
	}
	if d.Cover == "" {
		missing = append(missing, "coverImage")
	}
	if len(missing) > 0 {
		return &apperr.Error{Kind: apperr.KindValidation, Message: msgMissingFields, Fields: missing}
	}
	if len(categories) > 0 && !content.Contains(categories, d.Category) {
		return &apperr.Error{Kind: apperr.KindValidation, Message: msgUnknownCategory, Fields: []string{"category"}}
	}
	return nil
}

// Card builds the card to publish under id. today fills an empty date.
func (d Draft) Card(id int64, today string) Card {
	c := Card{
		ID:          id,
		Title:       d.Title,
		Category:    d.Category,
		Image:       d.Cover,
		Description: d.Description,
		Client:      orDefault(d.Client, notAvailable),
		Date:        orDefault(d.Date, today),
		Location:    orDefault(d.Location, notAvailable),
		Details:     orDefault(d.Details, d.Description),
		Tags:        ParseTags(d.Tags),
	}
	c.Gallery = make([]string, 0, len(d.Additional)+1)
	c.Gallery = append(c.Gallery, d.Cover)
	c.Gallery = append(c.Gallery, d.Additional...)
	return c
}

// DraftFromCard loads c for editing. The first gallery image becomes the
// cover and the rest the additional images.
func DraftFromCard(c Card) *Draft {
	d := &Draft{
		Title:       c.Title,
		Category:    c.Category,
		Description: c.Description,
		Client:      c.Client,
		Date:        c.Date,
		Location:    c.Location,
		Details:     c.Details,
		Tags:        strings.Join(c.Tags, ", "),
		Cover:       c.Image,
		Additional:  []string{},
		EditingID:   c.ID,
		Mode:        ModeUpload,
	}
	if len(c.Gallery) > 0 {
		d.Cover = c.Gallery[0]
		d.Additional = append(d.Additional, c.Gallery[1:]...)
	}
	return d
}

// ParseTags splits comma-separated input into trimmed tags. Blank input and
// blank segments yield no tags.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
