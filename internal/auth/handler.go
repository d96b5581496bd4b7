package auth

import (
	"encoding/json"
	"net/http"

	"github.com/my-other-app/moa-backend/internal/core/common/validation"
	"github.com/my-other-app/moa-backend/internal/transport"
	"github.com/my-other-app/moa-backend/pkg/logger"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("email", r.Email).Required()
	validator.Field("password", r.Password).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

type Handler struct {
	transport.BaseHandler
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Login godoc
// @Summary Exchange credentials for an access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} errors.AppError
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context())

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn("malformed login request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	token, principal, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		User:        principal,
	})
}
