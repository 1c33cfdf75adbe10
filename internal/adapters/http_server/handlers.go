package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"airnest/internal/app"
	"airnest/internal/availability"
	"airnest/internal/domain"
)

type Handlers struct {
	Bookings   *app.BookingService
	Properties *app.PropertyQueries
	Reviews    *app.ReviewService
	Wishlist   *app.WishlistService
	Drafts     *app.DraftService
	Listings   *app.ListingService
}

// Security configures the guards in front of authenticated routes.
type Security struct {
	JWTSecret      string
	BookingLimiter *ClientLimiter    // nil disables rate limiting
	Bot            domain.BotVerifier // nil disables bot verification
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers, sec Security) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/properties", h.searchProperties)
		r.Get("/properties/{id}", h.getProperty)
		r.Get("/properties/{id}/booked-dates", h.bookedDates)
		r.Get("/properties/{id}/availability", h.checkAvailability)
		r.Get("/properties/{id}/reviews", h.listReviews)
		r.Get("/properties/{id}/reviews/stats", h.reviewStats)
		r.Get("/review-tags", h.reviewTags)

		r.Group(func(r chi.Router) {
			r.Use(Auth(sec.JWTSecret))

			booking := r.With(BotCheck(sec.Bot))
			if sec.BookingLimiter != nil {
				booking = r.With(RateLimit(sec.BookingLimiter), BotCheck(sec.Bot))
			}
			booking.Post("/properties/{id}/reservations", h.createReservation)
			r.Get("/me/reservations", h.myReservations)

			r.Post("/properties/{id}/reviews", h.createReview)
			r.Put("/reviews/{id}", h.updateReview)
			r.Delete("/reviews/{id}", h.deleteReview)

			r.Post("/properties/{id}/favorite", h.toggleFavorite)
			r.Get("/me/wishlist", h.myWishlist)

			r.Get("/me/properties", h.myProperties)
			r.Patch("/properties/{id}", h.updateListing)
			r.Put("/properties/{id}", h.updateListing)
			r.Post("/properties/{id}/images/order", h.reorderListingImages)
			r.Delete("/properties/{id}/images/{imageID}", h.removeListingImage)

			r.Post("/drafts", h.createDraft)
			r.Get("/drafts/{id}", h.getDraft)
			r.Patch("/drafts/{id}", h.updateDraft)
			r.Post("/drafts/{id}/images", h.addDraftImage)
			r.Delete("/drafts/{id}/images/{imageID}", h.removeDraftImage)
			r.Post("/drafts/{id}/images/{imageID}/main", h.setDraftMainImage)
			r.Post("/drafts/{id}/publish", h.publishDraft)
		})
	})
}

/********** response helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached answers conditional GETs with 304 when the client already has
// this version.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("route", routeOf(r)).Msg("failed to write body")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ce *domain.ConflictError
	switch {
	case errors.As(err, &ce):
		writeProblemBody(w, problem{
			Type: "about:blank", Title: "Conflict", Status: http.StatusConflict,
			Detail: conflictDetail(ce.Reason), Reason: string(ce.Reason),
		})
	case errors.Is(err, availability.ErrInvalidTimeZone):
		// a stored property with a broken zone is a data problem, not a client one
		log.Error().Err(err).Str("route", routeOf(r)).Msg("property time zone invalid")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "property configuration error")
	case errors.Is(err, availability.ErrInvalidDateRange):
		writeProblem(w, http.StatusBadRequest, "Invalid Date Range", err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Invalid Input", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "")
	case errors.Is(err, domain.ErrForbidden):
		writeProblem(w, http.StatusForbidden, "Forbidden", "")
	case errors.Is(err, domain.ErrAlreadyReviewed):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrNotEligible):
		writeProblem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, domain.ErrDraftNotReady):
		writeProblem(w, http.StatusUnprocessableEntity, "Draft Not Ready", err.Error())
	default:
		log.Error().Err(err).Str("route", routeOf(r)).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func conflictDetail(r availability.Reason) string {
	switch r {
	case availability.ReasonOverlap:
		return "the selected dates overlap an existing reservation"
	case availability.ReasonBufferViolation:
		return "the selected dates leave too little time for cleaning between stays"
	case availability.ReasonPastDate:
		return "check-in date is in the past"
	case availability.ReasonDateOrderInvalid:
		return "check-out must be after check-in"
	}
	return string(r)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

/********** properties **********/

func (h *Handlers) searchProperties(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.PropertyFilter{
		Location: q.Get("location"),
		Category: q.Get("category"),
		CheckIn:  q.Get("check_in"),
		CheckOut: q.Get("check_out"),
	}
	if g := strings.TrimSpace(q.Get("guests")); g != "" {
		n, err := strconv.Atoi(g)
		if err != nil || n < 1 {
			writeProblem(w, http.StatusBadRequest, "Invalid guests", "guests must be a positive integer")
			return
		}
		f.Guests = &n
	}
	out, err := h.Properties.SearchProperties(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (h *Handlers) getProperty(w http.ResponseWriter, r *http.Request) {
	p, err := h.Properties.GetProperty(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, p)
}

/********** bookings **********/

func (h *Handlers) bookedDates(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bookings.BookedDates(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.Bookings.CheckAvailability(r.Context(), chi.URLParam(r, "id"), q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handlers) createReservation(w http.ResponseWriter, r *http.Request) {
	var req createReservationReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	res, err := h.Bookings.CreateReservation(r.Context(), app.CreateReservationCmd{
		PropertyID: chi.URLParam(r, "id"),
		UserID:     UserIDFrom(r.Context()),
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Guests:     req.Guests,
		TotalPrice: clientTotal(req.TotalPrice),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "reservation": res})
}

func (h *Handlers) myProperties(w http.ResponseWriter, r *http.Request) {
	out, err := h.Properties.MyProperties(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

/********** listings **********/

func (h *Handlers) updateListing(w http.ResponseWriter, r *http.Request) {
	var req draftReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.Listings.Update(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()), req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) reorderListingImages(w http.ResponseWriter, r *http.Request) {
	var req imageOrderReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	p, err := h.Listings.ReorderImages(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()), req.orders())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Images)
}

func (h *Handlers) removeListingImage(w http.ResponseWriter, r *http.Request) {
	p, err := h.Listings.RemoveImage(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()), chi.URLParam(r, "imageID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.Images)
}

func (h *Handlers) myReservations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Bookings.UserReservations(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.UserReservation{}
	}
	writeJSON(w, http.StatusOK, out)
}

/********** reviews **********/

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid page", "page must be an integer")
		return
	}
	size, err := queryInt(r, "page_size", 10)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid page_size", "page_size must be an integer")
		return
	}
	out, err := h.Reviews.ListReviews(r.Context(), chi.URLParam(r, "id"), page, size)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) reviewStats(w http.ResponseWriter, r *http.Request) {
	out, err := h.Reviews.Stats(r.Context(), chi.URLParam(r, "id"), localeOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) reviewTags(w http.ResponseWriter, r *http.Request) {
	out, err := h.Reviews.ReviewTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCached(w, r, out)
}

// localeOf reads the preferred tag language from Accept-Language.
func localeOf(r *http.Request) string {
	al := strings.ToLower(r.Header.Get("Accept-Language"))
	switch {
	case strings.Contains(al, "zh"):
		return "zh"
	case strings.Contains(al, "fr"):
		return "fr"
	}
	return "en"
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rv, err := h.Reviews.CreateReview(r.Context(), app.CreateReviewCmd{
		PropertyID: chi.URLParam(r, "id"),
		UserID:     UserIDFrom(r.Context()),
		Rating:     req.Rating,
		Title:      req.Title,
		Content:    req.Content,
		TagKeys:    req.TagKeys,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rv)
}

func (h *Handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	var req createReviewReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	rv, err := h.Reviews.UpdateReview(r.Context(), app.UpdateReviewCmd{
		ReviewID: chi.URLParam(r, "id"),
		UserID:   UserIDFrom(r.Context()),
		Rating:   req.Rating,
		Title:    req.Title,
		Content:  req.Content,
		TagKeys:  req.TagKeys,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	if err := h.Reviews.DeleteReview(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/********** wishlist **********/

func (h *Handlers) toggleFavorite(w http.ResponseWriter, r *http.Request) {
	added, err := h.Wishlist.Toggle(r.Context(), UserIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_favorite": added})
}

func (h *Handlers) myWishlist(w http.ResponseWriter, r *http.Request) {
	out, err := h.Wishlist.List(r.Context(), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

/********** drafts **********/

func (h *Handlers) createDraft(w http.ResponseWriter, r *http.Request) {
	var req draftReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	var f domain.DraftFields
	f.Apply(req.patch())
	d, err := h.Drafts.Create(r.Context(), UserIDFrom(r.Context()), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handlers) getDraft(w http.ResponseWriter, r *http.Request) {
	d, err := h.Drafts.Get(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) updateDraft(w http.ResponseWriter, r *http.Request) {
	var req draftReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	d, err := h.Drafts.Update(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()), req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) addDraftImage(w http.ResponseWriter, r *http.Request) {
	var req imageReq
	if !decodeAndValidate(w, r, &req) {
		return
	}
	d, err := h.Drafts.AddImage(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()), req.image())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handlers) removeDraftImage(w http.ResponseWriter, r *http.Request) {
	d, err := h.Drafts.RemoveImage(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()), chi.URLParam(r, "imageID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) setDraftMainImage(w http.ResponseWriter, r *http.Request) {
	d, err := h.Drafts.SetMainImage(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()), chi.URLParam(r, "imageID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) publishDraft(w http.ResponseWriter, r *http.Request) {
	p, err := h.Drafts.Publish(r.Context(), chi.URLParam(r, "id"), UserIDFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}
