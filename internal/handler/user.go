package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/estate-portal/internal/apperror"
	"github.com/sakif/estate-portal/internal/model"
	"github.com/sakif/estate-portal/internal/service"
	"github.com/sakif/estate-portal/internal/session"
	"github.com/sakif/estate-portal/internal/storage"
	"github.com/sakif/estate-portal/internal/validation"
)

// UserHandler serves the profile API.
type UserHandler struct {
	users         *service.UserService
	publicBaseURL string
	logger        *slog.Logger
}

func NewUserHandler(users *service.UserService, publicBaseURL string, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, publicBaseURL: publicBaseURL, logger: logger}
}

// UserResponse is a profile row plus the public URL of its avatar, if any.
type UserResponse struct {
	model.User
	AvatarURL *string `json:"avatarUrl"`
}

func (h *UserHandler) present(u *model.User) UserResponse {
	out := UserResponse{User: *u}
	if u.Img != nil && *u.Img != "" {
		url := storage.PublicURL(h.publicBaseURL, *u.Img)
		out.AvatarURL = &url
	}
	return out
}

// HandleList returns every profile, newest first.
//
// HTTP: GET /api/users
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, h.present(&users[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetByID returns one profile wrapped in a one-element array.
//
// HTTP: GET /api/user/{id}
func (h *UserHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, []UserResponse{h.present(user)})
}

// HandleUpdateProfile edits the caller's own name and phone and optionally
// replaces the avatar. JSON bodies carry name/phone only; a multipart body
// may add an "avatar" file.
//
// HTTP: PUT /api/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := session.Current(r.Context())
	if !ok {
		writeError(w, r, h.logger, apperror.Unauthorized("sign in to edit your profile"))
		return
	}

	var in service.UpdateProfileInput
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, validation.ImageConstraints.MaxSize+1<<20)
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			writeError(w, r, h.logger, apperror.ValidationFailed("avatar", "invalid or too large multipart body"))
			return
		}
		defer func() { _ = r.MultipartForm.RemoveAll() }()

		if v, ok := r.MultipartForm.Value["name"]; ok && len(v) > 0 {
			in.Name = &v[0]
		}
		if v, ok := r.MultipartForm.Value["phone"]; ok && len(v) > 0 {
			in.Phone = &v[0]
		}

		if files := r.MultipartForm.File["avatar"]; len(files) > 0 {
			fh := files[0]
			contentType, err := validation.ValidateImage(fh)
			if err != nil {
				writeError(w, r, h.logger, apperror.ValidationFailed("avatar", err.Error()))
				return
			}
			f, err := fh.Open()
			if err != nil {
				writeError(w, r, h.logger, err)
				return
			}
			defer func() { _ = f.Close() }()
			in.Avatar = &service.ImageUpload{Filename: fh.Filename, ContentType: contentType, Body: f}
		}
	} else if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(user))
}
