package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"airnest/internal/domain"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json field names in validation errors
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeAndValidate reads a JSON body into dst and runs its validate tags.
// On failure it writes the problem response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var ves validator.ValidationErrors
		if errors.As(err, &ves) {
			msgs := make([]string, 0, len(ves))
			for _, fe := range ves {
				msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
			}
			writeProblem(w, http.StatusBadRequest, "Validation Failed", strings.Join(msgs, "; "))
			return false
		}
		writeProblem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

type createReservationReq struct {
	CheckIn    string          `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut   string          `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests     int             `json:"guests" validate:"required,min=1,max=50"`
	TotalPrice json.RawMessage `json:"total_price,omitempty"`
}

// clientTotal turns the optional total_price (number or string) into the
// text handed to pricing. Missing, null and numeric zero count as absent.
func clientTotal(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil || f == 0 {
		return ""
	}
	return string(raw)
}

type createReviewReq struct {
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	Title   string   `json:"title" validate:"max=200"`
	Content string   `json:"content" validate:"required,max=5000"`
	TagKeys []string `json:"tag_keys" validate:"omitempty,max=10,dive,required,max=50"`
}

type draftReq struct {
	Title         *string  `json:"title" validate:"omitempty,max=255"`
	Description   *string  `json:"description" validate:"omitempty,max=10000"`
	PricePerNight *float64 `json:"price_per_night" validate:"omitempty,gt=0"`
	Category      *string  `json:"category" validate:"omitempty,max=64"`
	PlaceType     *string  `json:"place_type" validate:"omitempty,max=64"`
	Bedrooms      *int     `json:"bedrooms" validate:"omitempty,min=0,max=100"`
	Bathrooms     *int     `json:"bathrooms" validate:"omitempty,min=0,max=100"`
	Guests        *int     `json:"guests" validate:"omitempty,min=1,max=100"`
	Beds          *int     `json:"beds" validate:"omitempty,min=0,max=100"`
	Country       *string  `json:"country" validate:"omitempty,max=64"`
	State         *string  `json:"state" validate:"omitempty,max=128"`
	City          *string  `json:"city" validate:"omitempty,max=128"`
	Address       *string  `json:"address" validate:"omitempty,max=255"`
	PostalCode    *string  `json:"postal_code" validate:"omitempty,max=32"`
	TimeZone      *string  `json:"timezone" validate:"omitempty,max=64"`
}

func (d draftReq) patch() domain.DraftPatch {
	return domain.DraftPatch{
		Title: d.Title, Description: d.Description, PricePerNight: d.PricePerNight,
		Category: d.Category, PlaceType: d.PlaceType,
		Bedrooms: d.Bedrooms, Bathrooms: d.Bathrooms, Guests: d.Guests, Beds: d.Beds,
		Country: d.Country, State: d.State, City: d.City, Address: d.Address,
		PostalCode: d.PostalCode, TimeZone: d.TimeZone,
	}
}

type imageReq struct {
	URL         string `json:"url" validate:"omitempty,url"`
	ObjectKey   string `json:"object_key" validate:"max=512"`
	ContentType string `json:"content_type" validate:"omitempty,oneof=image/jpeg image/png image/webp"`
	Size        int64  `json:"size" validate:"min=0,max=10485760"`
	Order       int    `json:"order" validate:"min=0"`
	IsMain      bool   `json:"is_main"`
}

func (i imageReq) image() domain.Image {
	return domain.Image{
		URL: i.URL, ObjectKey: i.ObjectKey, ContentType: i.ContentType,
		Size: i.Size, Order: i.Order, IsMain: i.IsMain,
	}
}

type imageOrderReq struct {
	ImageOrders []imageOrderItem `json:"image_orders" validate:"required,min=1,max=100,dive"`
}

type imageOrderItem struct {
	ID    string `json:"id" validate:"required,max=64"`
	Order int    `json:"order" validate:"min=0"`
}

func (r imageOrderReq) orders() []domain.ImageOrder {
	out := make([]domain.ImageOrder, len(r.ImageOrders))
	for i, o := range r.ImageOrders {
		out[i] = domain.ImageOrder{ID: o.ID, Order: o.Order}
	}
	return out
}
