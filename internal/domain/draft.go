package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	DraftStatusDraft     = "draft"
	DraftStatusComplete  = "complete"
	DraftStatusPublished = "published"
)

// Draft is a listing being built step by step. Every mutation goes through a
// method that ends in recomputeCompletion, so the completion flags are
// always consistent with the fields and images.
type Draft struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Status     string      `json:"status"`
	Fields     DraftFields `json:"fields"`
	Images     []Image     `json:"images"`
	Completion Completion  `json:"completion"`
	PropertyID *string     `json:"property_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type DraftFields struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	PricePerNight *float64 `json:"price_per_night"`
	Category      string   `json:"category"`
	PlaceType     string   `json:"place_type"`
	Bedrooms      *int     `json:"bedrooms"`
	Bathrooms     *int     `json:"bathrooms"`
	Guests        *int     `json:"guests"`
	Beds          *int     `json:"beds"`
	Country       string   `json:"country"`
	State         string   `json:"state"`
	City          string   `json:"city"`
	Address       string   `json:"address"`
	PostalCode    string   `json:"postal_code"`
	TimeZone      string   `json:"timezone"`
}

// DraftPatch holds optional updates; nil leaves a field untouched.
type DraftPatch struct {
	Title         *string
	Description   *string
	PricePerNight *float64
	Category      *string
	PlaceType     *string
	Bedrooms      *int
	Bathrooms     *int
	Guests        *int
	Beds          *int
	Country       *string
	State         *string
	City          *string
	Address       *string
	PostalCode    *string
	TimeZone      *string
}

type Completion struct {
	BasicInfo bool `json:"basic_info"`
	Location  bool `json:"location"`
	Images    bool `json:"images"`
	Pricing   bool `json:"pricing"`
	Percent   int  `json:"percent"`
}

func NewDraft(id, userID string, f DraftFields, now time.Time) *Draft {
	if f.TimeZone == "" {
		f.TimeZone = "UTC"
	}
	d := &Draft{ID: id, UserID: userID, Status: DraftStatusDraft, Fields: f, CreatedAt: now, UpdatedAt: now}
	d.recomputeCompletion(now)
	return d
}

func (d *Draft) Update(p DraftPatch, now time.Time) {
	d.Fields.Apply(p)
	d.recomputeCompletion(now)
}

// Apply copies every non-nil patch field onto f.
func (f *DraftFields) Apply(p DraftPatch) {
	setStr(&f.Title, p.Title)
	setStr(&f.Description, p.Description)
	setStr(&f.Category, p.Category)
	setStr(&f.PlaceType, p.PlaceType)
	setStr(&f.Country, p.Country)
	setStr(&f.State, p.State)
	setStr(&f.City, p.City)
	setStr(&f.Address, p.Address)
	setStr(&f.PostalCode, p.PostalCode)
	setStr(&f.TimeZone, p.TimeZone)
	if p.PricePerNight != nil {
		v := *p.PricePerNight
		f.PricePerNight = &v
	}
	setInt(&f.Bedrooms, p.Bedrooms)
	setInt(&f.Bathrooms, p.Bathrooms)
	setInt(&f.Guests, p.Guests)
	setInt(&f.Beds, p.Beds)
}

// AddImage appends img. A main image demotes any previous main image, and
// the first image of a draft always becomes main.
func (d *Draft) AddImage(img Image, now time.Time) {
	if len(d.Images) == 0 {
		img.IsMain = true
	}
	if img.IsMain {
		for i := range d.Images {
			d.Images[i].IsMain = false
		}
	}
	d.Images = append(d.Images, img)
	d.sortImages()
	d.recomputeCompletion(now)
}

// RemoveImage drops the image with id. Removing the main image promotes the
// first remaining one.
func (d *Draft) RemoveImage(id string, now time.Time) bool {
	idx := -1
	for i, img := range d.Images {
		if img.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	wasMain := d.Images[idx].IsMain
	d.Images = append(d.Images[:idx], d.Images[idx+1:]...)
	if wasMain && len(d.Images) > 0 {
		d.Images[0].IsMain = true
	}
	d.recomputeCompletion(now)
	return true
}

// SetMainImage makes image id the main one. An unknown id leaves the draft
// untouched and reports false.
func (d *Draft) SetMainImage(id string, now time.Time) bool {
	idx := -1
	for i, img := range d.Images {
		if img.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	for i := range d.Images {
		d.Images[i].IsMain = i == idx
	}
	d.recomputeCompletion(now)
	return true
}

func (d *Draft) ReadyForPublish() bool {
	c := d.Completion
	return c.BasicInfo && c.Location && c.Images && c.Pricing
}

// ToProperty builds the published listing from a ready draft.
func (d *Draft) ToProperty(id string, now time.Time) Property {
	f := d.Fields
	return Property{
		ID:            id,
		LandlordID:    d.UserID,
		Title:         f.Title,
		Description:   f.Description,
		PricePerNight: deref(f.PricePerNight),
		Status:        StatusPublished,
		Category:      f.Category,
		PlaceType:     f.PlaceType,
		Bedrooms:      deref(f.Bedrooms),
		Bathrooms:     deref(f.Bathrooms),
		Guests:        deref(f.Guests),
		Beds:          deref(f.Beds),
		Country:       f.Country,
		State:         f.State,
		City:          f.City,
		Address:       f.Address,
		PostalCode:    f.PostalCode,
		TimeZone:      f.TimeZone,
		Images:        append([]Image(nil), d.Images...),
		CreatedAt:     now,
	}
}

func (d *Draft) MarkPublished(propertyID string, now time.Time) {
	d.Status = DraftStatusPublished
	d.PropertyID = &propertyID
	d.UpdatedAt = now
}

func (d *Draft) recomputeCompletion(now time.Time) {
	f := d.Fields
	c := Completion{
		BasicInfo: nonEmpty(f.Title, f.Description, f.Category, f.PlaceType) &&
			f.Bedrooms != nil && f.Bathrooms != nil && f.Guests != nil && f.Beds != nil,
		Location: nonEmpty(f.Country, f.City, f.Address, f.PostalCode),
		Images:   len(d.Images) > 0,
		Pricing:  f.PricePerNight != nil,
	}
	n := 0
	for _, ok := range []bool{c.BasicInfo, c.Location, c.Images, c.Pricing} {
		if ok {
			n++
		}
	}
	c.Percent = n * 100 / 4
	d.Completion = c

	if d.Status != DraftStatusPublished {
		if d.ReadyForPublish() {
			d.Status = DraftStatusComplete
		} else {
			d.Status = DraftStatusDraft
		}
	}
	d.UpdatedAt = now
}

func (d *Draft) sortImages() {
	sort.SliceStable(d.Images, func(i, j int) bool { return d.Images[i].Order < d.Images[j].Order })
}

func nonEmpty(ss ...string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst **int, v *int) {
	if v != nil {
		n := *v
		*dst = &n
	}
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
