package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
	"github.com/sakif/estate-portal/internal/service"
	"github.com/sakif/estate-portal/internal/session"
	"github.com/sakif/estate-portal/internal/storage"
	"github.com/sakif/estate-portal/internal/validation"
)

// maxListingFields bounds the text fields of a multipart create. Kept
// images are bounded one by one; extra images are drained unread.
const maxListingFields = 1 << 20

// ListingHandler serves the listing API.
type ListingHandler struct {
	listings      *service.ListingService
	publicBaseURL string
	logger        *slog.Logger
}

func NewListingHandler(listings *service.ListingService, publicBaseURL string, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, publicBaseURL: publicBaseURL, logger: logger}
}

// ListingResponse is a listing row plus the public URLs of its images, in
// the same order as img.
type ListingResponse struct {
	model.Listing
	ImageURLs []string `json:"imageUrls"`
}

func newListingResponse(publicBaseURL string, l *model.Listing) ListingResponse {
	return ListingResponse{Listing: *l, ImageURLs: storage.PublicURLs(publicBaseURL, l.Img)}
}

func (h *ListingHandler) present(l *model.Listing) ListingResponse {
	return newListingResponse(h.publicBaseURL, l)
}

// updateListingRequest accepts listing_status as an alias for status; the
// dashboard edit form sends it under that name.
type updateListingRequest struct {
	service.UpdateListingInput
	ListingStatus *model.ListingStatus `json:"listing_status"`
}

// HandleList returns listings newest first.
//
// HTTP: GET /api/listings?status=available&author_id=...&limit=20&offset=0
func (h *ListingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := queryInt(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	listings, err := h.listings.List(r.Context(), repository.ListOptions{
		AuthorID: q.Get("author_id"),
		Status:   model.ListingStatus(q.Get("status")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		out = append(out, h.present(&listings[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetByID returns one listing wrapped in a one-element array.
//
// HTTP: GET /api/listing/{id}
func (h *ListingHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, []ListingResponse{h.present(listing)})
}

// HandleCreate creates a listing authored by the signed-in user. The body is
// either JSON (no images) or multipart/form-data with the same field names
// and up to four files under "images"; extra files are ignored.
//
// HTTP: POST /api/listings, POST /api/listing/{id}
func (h *ListingHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := session.Current(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized("sign in to create a listing"))
		return
	}

	var in service.CreateListingInput
	if isMultipart(r) {
		parsed, err := listingFromMultipart(r)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		in = parsed
	} else if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	listing, err := h.listings.Create(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present(listing))
}

// HandleUpdate applies a partial update. Only the author or an admin may
// update.
//
// HTTP: PUT /api/listing/update/{id}
// BODY: {"bedrooms": 3, "price": 1200, "listing_status": "rented", ...}
func (h *ListingHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, ok := session.Current(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized("sign in to update a listing"))
		return
	}

	var req updateListingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	in := req.UpdateListingInput
	if in.Status == nil {
		in.Status = req.ListingStatus
	}

	listing, err := h.listings.Update(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string          `json:"message"`
		Listing ListingResponse `json:"listing"`
	}{"Listing has been updated", h.present(listing)})
}

// HandleDelete removes a listing and its images. Only the author or an
// admin may delete.
//
// HTTP: DELETE /api/listing/{id}, GET /api/listing/delete/{id}
func (h *ListingHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := session.Current(r.Context())

	if err := h.listings.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "deleted successfully"})
}

// listingFromMultipart streams a multipart create. The first
// model.MaxListingImages files under "images" are read into memory and
// validated; later ones are skipped without being buffered.
func listingFromMultipart(r *http.Request) (service.CreateListingInput, error) {
	var in service.CreateListingInput
	badBody := apperror.ValidationFailed("images", "invalid multipart body")

	mr, err := r.MultipartReader()
	if err != nil {
		return in, badBody
	}

	form := url.Values{}
	fieldBudget := int64(maxListingFields)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return in, badBody
		}

		name := part.FormName()
		switch {
		case part.FileName() == "":
			v, err := io.ReadAll(io.LimitReader(part, fieldBudget+1))
			if err != nil {
				return in, badBody
			}
			fieldBudget -= int64(len(v))
			if fieldBudget < 0 {
				return in, apperror.ValidationFailed(name, "form fields are too large")
			}
			form.Add(name, string(v))

		case name == "images" && len(in.Images) < model.MaxListingImages:
			data, err := io.ReadAll(io.LimitReader(part, validation.ImageConstraints.MaxSize+1))
			if err != nil {
				return in, badBody
			}
			contentType, err := validation.ValidateImageData(part.FileName(), data)
			if err != nil {
				return in, apperror.ValidationFailed("images", err.Error())
			}
			in.Images = append(in.Images, service.ImageUpload{
				Filename:    part.FileName(),
				ContentType: contentType,
				Body:        bytes.NewReader(data),
			})

		default:
			if _, err := io.Copy(io.Discard, part); err != nil {
				return in, badBody
			}
		}
		_ = part.Close()
	}

	in.Title = form.Get("title")
	in.Description = form.Get("description")
	in.Location = form.Get("location")
	in.Status = model.ListingStatus(form.Get("status"))
	if in.Status == "" {
		in.Status = model.ListingStatus(form.Get("listing_status"))
	}
	if in.Price, err = parseFloat(form.Get("price"), "price"); err != nil {
		return in, err
	}
	if in.TotalPackage, err = parseFloat(form.Get("total_package"), "total_package"); err != nil {
		return in, err
	}
	if in.Bedrooms, err = queryInt(form.Get("bedrooms"), "bedrooms"); err != nil {
		return in, err
	}
	if in.Bathrooms, err = queryInt(form.Get("bathrooms"), "bathrooms"); err != nil {
		return in, err
	}
	return in, nil
}

// queryInt parses an optional integer parameter; empty means zero.
func queryInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(field, fmt.Sprintf("%s must be a whole number", field))
	}
	return n, nil
}

func parseFloat(raw, field string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, apperror.ValidationFailed(field, fmt.Sprintf("%s must be a number", field))
	}
	return f, nil
}
