// Package handler contains the HTTP handlers: the JSON API and the thin HTML
// page shells.
//
// Handlers are the glue between HTTP and the service layer:
//  1. parse the request (path params, query, JSON or form body)
//  2. make one service call
//  3. write the response (status code, headers, body)
//
// They hold no business rules. Authorization and cleanup live in services.
package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/repository"
	"github.com/sakif/estate-portal/internal/service"
	"github.com/sakif/estate-portal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"home", "dashboard", "add-listing", "listing", "login", "register", "not-found"}

// PageHandler renders the HTML shells. Templates are parsed once at startup;
// each page is base.html plus its own file defining "content".
type PageHandler struct {
	templates     map[string]*template.Template
	listings      *service.ListingService
	publicBaseURL string
	logger        *slog.Logger
}

// pageData is what every template receives.
type pageData struct {
	Title    string
	User     *model.User
	Error    string
	Listings []ListingResponse
	Listing  *ListingResponse
	CanEdit  bool
}

func NewPageHandler(listings *service.ListingService, publicBaseURL string, logger *slog.Logger) (*PageHandler, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		templates[name] = tmpl
	}

	return &PageHandler{
		templates:     templates,
		listings:      listings,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}, nil
}

// HandleLogin serves GET /login.
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login", pageData{
		Title: "Sign in",
		Error: r.URL.Query().Get("error"),
	})
}

// HandleRegister serves GET /register.
func (h *PageHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register", pageData{
		Title: "Create an account",
		Error: r.URL.Query().Get("error"),
	})
}

// HandleHome serves GET /, the list of available listings.
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	user, _ := session.Current(r.Context())

	listings, err := h.listings.List(r.Context(), repository.ListOptions{Status: model.StatusAvailable})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, http.StatusOK, "home", pageData{
		Title:    "Available listings",
		User:     user,
		Listings: h.present(listings),
	})
}

// HandleDashboard serves GET /dashboard: the caller's own listings, or every
// listing for an admin.
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := session.Current(r.Context())

	opts := repository.ListOptions{}
	if user != nil && !user.IsAdmin() {
		opts.AuthorID = user.ID
	}
	listings, err := h.listings.List(r.Context(), opts)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.render(w, http.StatusOK, "dashboard", pageData{
		Title:    "Dashboard",
		User:     user,
		Listings: h.present(listings),
	})
}

// HandleAddListing serves GET /dashboard/add-listing.
func (h *PageHandler) HandleAddListing(w http.ResponseWriter, r *http.Request) {
	user, _ := session.Current(r.Context())
	h.render(w, http.StatusOK, "add-listing", pageData{Title: "Add a listing", User: user})
}

// HandleListing serves GET /listing/{id}.
func (h *PageHandler) HandleListing(w http.ResponseWriter, r *http.Request) {
	user, _ := session.Current(r.Context())

	listing, err := h.listings.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	view := newListingResponse(h.publicBaseURL, listing)
	h.render(w, http.StatusOK, "listing", pageData{
		Title:   listing.Title,
		User:    user,
		Listing: &view,
		CanEdit: h.listings.CanMutate(user, listing),
	})
}

func (h *PageHandler) present(listings []model.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		out = append(out, newListingResponse(h.publicBaseURL, &listings[i]))
	}
	return out
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		h.render(w, http.StatusNotFound, "not-found", pageData{Title: "Not found"})
		return
	}
	h.logger.Error("page failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *PageHandler) render(w http.ResponseWriter, status int, name string, data pageData) {
	tmpl, ok := h.templates[name]
	if !ok {
		h.logger.Error("unknown template", slog.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// Render into a buffer so a template error can still become a clean 500.
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		h.logger.Error("failed to render template",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
