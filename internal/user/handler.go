package user

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/shoplab/order-coordination-go/pkg/api"
	"github.com/shoplab/order-coordination-go/pkg/httpx"
)

type Handler struct {
	store Store
	log   *zap.Logger
}

func NewHandler(store Store, log *zap.Logger) *Handler {
	return &Handler{store: store, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/user/{id}", h.getUser)
	r.Post("/user", h.postUser)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	u, err := h.store.Get(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteStatus(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.log.Error("get user failed", zap.Int("user_id", id), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFor(u))
}

func (h *Handler) postUser(w http.ResponseWriter, r *http.Request) {
	var req api.UserPayload
	if err := httpx.ReadJSON(r, &req); err != nil || req.Command == "" || req.ID <= 0 {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}

	switch req.Command {
	case api.CommandCreate:
		h.create(w, r, req)
	case api.CommandUpdate:
		h.update(w, r, req)
	case api.CommandDelete:
		h.delete(w, r, req)
	default:
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request, req api.UserPayload) {
	if emptyPtr(req.Username) || emptyPtr(req.Email) || emptyPtr(req.Password) {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	u := User{
		ID:           req.ID,
		Username:     *req.Username,
		Email:        *req.Email,
		PasswordHash: HashPassword(*req.Password),
	}
	err := h.store.Create(r.Context(), u)
	if errors.Is(err, ErrDuplicateID) {
		httpx.WriteStatus(w, http.StatusConflict, "User already exists")
		return
	}
	if err != nil {
		h.log.Error("create user failed", zap.Int("user_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFor(u))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, req api.UserPayload) {
	// Present-but-empty fields are rejected; absent fields are left alone.
	for _, f := range []*string{req.Username, req.Email, req.Password} {
		if f != nil && *f == "" {
			httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
			return
		}
	}
	var hash *string
	if req.Password != nil {
		v := HashPassword(*req.Password)
		hash = &v
	}
	u, err := h.store.Update(r.Context(), req.ID, req.Username, req.Email, hash)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteStatus(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.log.Error("update user failed", zap.Int("user_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFor(u))
}

// delete requires every field to match the stored record before the row is
// removed.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request, req api.UserPayload) {
	if req.Username == nil || req.Email == nil || req.Password == nil {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	u, err := h.store.Get(r.Context(), req.ID)
	if errors.Is(err, ErrNotFound) {
		httpx.WriteStatus(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.log.Error("delete user lookup failed", zap.Int("user_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	if u.Username != *req.Username || u.Email != *req.Email || u.PasswordHash != HashPassword(*req.Password) {
		httpx.WriteStatus(w, http.StatusBadRequest, "Invalid Request")
		return
	}
	if err := h.store.Delete(r.Context(), req.ID); err != nil {
		h.log.Error("delete user failed", zap.Int("user_id", req.ID), zap.Error(err))
		httpx.WriteStatus(w, http.StatusInternalServerError, "Internal Error")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, payloadFor(u))
}

func payloadFor(u User) api.UserPayload {
	return api.UserPayload{
		ID:       u.ID,
		Username: &u.Username,
		Email:    &u.Email,
		Password: &u.PasswordHash,
	}
}

func emptyPtr(s *string) bool {
	return s == nil || *s == ""
}
