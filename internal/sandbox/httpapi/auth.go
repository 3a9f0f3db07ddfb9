package httpapi

import (
	"net/http"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/service"
)

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var body loginRequest
	if !r.decode(w, req, &body) {
		return
	}
	tokens, err := r.services.Auth.Login(req.Context(), body.Email, body.Password)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Signed in", tokens)
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	var body refreshRequest
	if !r.decode(w, req, &body) {
		return
	}
	tokens, err := r.services.Auth.Refresh(req.Context(), body.RefreshToken)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Token refreshed", tokens)
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	var body logoutRequest
	if !r.decode(w, req, &body) {
		return
	}
	if err := r.services.Auth.Logout(req.Context(), body.RefreshToken); err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Signed out", nil)
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	u, err := r.services.Auth.User(req.Context(), getUserID(req.Context()))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "ok", u)
}

func (r *Router) handleRegisterPersonal(w http.ResponseWriter, req *http.Request) {
	var body service.PersonalInput
	if !r.decode(w, req, &body) {
		return
	}
	step, err := r.services.Registration.Start(req.Context(), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusCreated, "Registration started", step)
}

func (r *Router) handleVerify(w http.ResponseWriter, req *http.Request) {
	var body service.VerifyInput
	if !r.decode(w, req, &body) {
		return
	}
	step, err := r.services.Registration.Verify(req.Context(), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Email verified", step)
}

func (r *Router) handleResend(w http.ResponseWriter, req *http.Request) {
	var body service.SessionInput
	if !r.decode(w, req, &body) {
		return
	}
	step, err := r.services.Registration.Resend(req.Context(), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Verification code sent", step)
}

func (r *Router) handleRegisterLocation(w http.ResponseWriter, req *http.Request) {
	var body service.LocationInput
	if !r.decode(w, req, &body) {
		return
	}
	step, err := r.services.Registration.Location(req.Context(), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Location saved", step)
}

func (r *Router) handleRegisterBusiness(w http.ResponseWriter, req *http.Request) {
	var body service.BusinessInput
	if !r.decode(w, req, &body) {
		return
	}
	step, err := r.services.Registration.Complete(req.Context(), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusCreated, "Registration complete", step)
}
