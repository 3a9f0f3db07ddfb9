package garage

import (
	"context"
	"net/http"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const profilePath = "/profile"

type profileRecord struct {
	ID           string            `json:"id"`
	GarageName   string            `json:"garage_name"`
	OwnerName    string            `json:"owner_name"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone_number"`
	Address      string            `json:"address"`
	City         string            `json:"city"`
	TradeLicense string            `json:"trade_license"`
	LogoURL      string            `json:"logo_url"`
	WorkingHours map[string]string `json:"working_hours"`
	Specialties  []string          `json:"specialties"`
	Rating       float64           `json:"rating"`
}

type Profile struct {
	ID           string            `json:"id"`
	GarageName   string            `json:"garageName"`
	OwnerName    string            `json:"ownerName"`
	Email        string            `json:"email"`
	Phone        string            `json:"phone"`
	Address      string            `json:"address"`
	City         string            `json:"city"`
	TradeLicense string            `json:"tradeLicense"`
	LogoURL      string            `json:"logoUrl"`
	WorkingHours map[string]string `json:"workingHours"`
	Specialties  []string          `json:"specialties"`
	Rating       float64           `json:"rating"`
}

func mapProfile(r profileRecord) Profile {
	p := Profile{
		ID:           r.ID,
		GarageName:   or(r.GarageName, "My garage"),
		OwnerName:    r.OwnerName,
		Email:        r.Email,
		Phone:        r.Phone,
		Address:      r.Address,
		City:         r.City,
		TradeLicense: r.TradeLicense,
		LogoURL:      r.LogoURL,
		WorkingHours: r.WorkingHours,
		Specialties:  r.Specialties,
		Rating:       r.Rating,
	}
	if p.WorkingHours == nil {
		p.WorkingHours = map[string]string{}
	}
	if p.Specialties == nil {
		p.Specialties = []string{}
	}
	return p
}

// ProfileUpdate carries only the fields being changed.
type ProfileUpdate struct {
	GarageName   string            `json:"garage_name,omitempty" validate:"omitempty,min=2,max=100"`
	OwnerName    string            `json:"owner_name,omitempty" validate:"omitempty,max=100"`
	Phone        string            `json:"phone_number,omitempty" validate:"omitempty,e164"`
	Address      string            `json:"address,omitempty" validate:"max=300"`
	City         string            `json:"city,omitempty" validate:"max=100"`
	LogoURL      string            `json:"logo_url,omitempty" validate:"omitempty,url"`
	WorkingHours map[string]string `json:"working_hours,omitempty"`
	Specialties  []string          `json:"specialties,omitempty" validate:"dive,max=50"`
}

func (s *Service) GetProfile(ctx context.Context, opts ...ReadOption) (Profile, error) {
	req := detail(cache.ResourceProfile, profilePath)
	p, err := read(ctx, s, req, fetchOne(s, api.Get(profilePath, nil), mapProfile), opts)
	if err == nil {
		s.mirrorProfile(p)
	}
	return p, err
}

func (s *Service) UpdateProfile(ctx context.Context, in ProfileUpdate) (Profile, error) {
	if err := s.check(in); err != nil {
		return Profile{}, err
	}
	req := api.Request{Method: http.MethodPut, Path: profilePath, Body: in}
	p, err := writeOne(ctx, s, req, mapProfile, []string{profilePath, "/settings"})
	if err == nil {
		s.mirrorProfile(p)
	}
	return p, err
}

// mirrorProfile keeps the session's profile record in step with the last
// read so offline commands can show the garage name.
func (s *Service) mirrorProfile(p Profile) {
	if s.session == nil {
		return
	}
	if err := s.session.SaveProfile(p); err != nil {
		s.log.Warn().Err(err).Msg("save profile record")
	}
}

// StoredProfile returns the profile mirrored into the session, if any.
func (s *Service) StoredProfile() (Profile, bool) {
	var p Profile
	if s.session == nil {
		return p, false
	}
	ok, err := s.session.LoadProfile(&p)
	if err != nil {
		s.log.Warn().Err(err).Msg("load profile record")
		return p, false
	}
	return p, ok
}
