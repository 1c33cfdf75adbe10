package domain

import (
	"fmt"
	"sort"
	"time"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Property struct {
	ID            string    `json:"id"`
	LandlordID    string    `json:"landlord_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PricePerNight float64   `json:"price_per_night"`
	Status        string    `json:"status"`
	Category      string    `json:"category"`
	PlaceType     string    `json:"place_type"`
	Bedrooms      int       `json:"bedrooms"`
	Bathrooms     int       `json:"bathrooms"`
	Guests        int       `json:"guests"`
	Beds          int       `json:"beds"`
	Country       string    `json:"country"`
	State         string    `json:"state,omitempty"`
	City          string    `json:"city"`
	Address       string    `json:"address"`
	PostalCode    string    `json:"postal_code"`
	TimeZone      string    `json:"timezone"` // IANA name
	Images        []Image   `json:"images"`
	CreatedAt     time.Time `json:"created_at"`
}

type Image struct {
	ID          string `json:"id"`
	ObjectKey   string `json:"object_key"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Order       int    `json:"order"`
	IsMain      bool   `json:"is_main"`
}

// PropertyFilter narrows the public listing. Empty fields do not filter.
type PropertyFilter struct {
	Location string
	Category string
	Guests   *int
	CheckIn  string // YYYY-MM-DD, both dates needed to filter
	CheckOut string
}

// ImageOrder moves one image to a new position.
type ImageOrder struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// Apply copies every non-nil patch field onto a published listing. The
// listing must stay complete: required text cannot be blanked.
func (p *Property) Apply(patch DraftPatch) error {
	f := DraftFields{
		Title: p.Title, Description: p.Description, Category: p.Category, PlaceType: p.PlaceType,
		Country: p.Country, State: p.State, City: p.City, Address: p.Address, PostalCode: p.PostalCode,
		TimeZone: p.TimeZone, PricePerNight: &p.PricePerNight,
		Bedrooms: &p.Bedrooms, Bathrooms: &p.Bathrooms, Guests: &p.Guests, Beds: &p.Beds,
	}
	f.Apply(patch)
	if !nonEmpty(f.Title, f.Description, f.Country, f.City, f.Address, f.TimeZone) {
		return fmt.Errorf("%w: title, description, location and timezone are required", ErrInvalidInput)
	}
	p.Title, p.Description, p.Category, p.PlaceType = f.Title, f.Description, f.Category, f.PlaceType
	p.Country, p.State, p.City, p.Address, p.PostalCode = f.Country, f.State, f.City, f.Address, f.PostalCode
	p.TimeZone = f.TimeZone
	p.PricePerNight = *f.PricePerNight
	p.Bedrooms, p.Bathrooms, p.Guests, p.Beds = *f.Bedrooms, *f.Bathrooms, *f.Guests, *f.Beds
	return nil
}

// RemoveImage drops image id. A listing keeps at least one image; removing
// the main image promotes the first remaining one.
func (p *Property) RemoveImage(id string) error {
	idx := -1
	for i, img := range p.Images {
		if img.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotFound
	}
	if len(p.Images) == 1 {
		return fmt.Errorf("%w: cannot delete the only image of a listing", ErrInvalidInput)
	}
	wasMain := p.Images[idx].IsMain
	p.Images = append(p.Images[:idx], p.Images[idx+1:]...)
	if wasMain {
		p.Images[0].IsMain = true
	}
	return nil
}

// ReorderImages applies the new positions, ignoring unknown ids, and makes
// the first image after sorting the main one.
func (p *Property) ReorderImages(orders []ImageOrder) error {
	if len(orders) == 0 {
		return fmt.Errorf("%w: no image order given", ErrInvalidInput)
	}
	pos := make(map[string]int, len(orders))
	for _, o := range orders {
		pos[o.ID] = o.Order
	}
	for i := range p.Images {
		if n, ok := pos[p.Images[i].ID]; ok {
			p.Images[i].Order = n
		}
	}
	sort.SliceStable(p.Images, func(i, j int) bool { return p.Images[i].Order < p.Images[j].Order })
	for i := range p.Images {
		p.Images[i].IsMain = i == 0
	}
	return nil
}
