package cache

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Resource tags a cache entry with the backend resource family it came from.
// TTL and sensitivity are looked up by tag, never by scanning the endpoint.
type Resource string

const (
	ResourceAuth          Resource = "auth"
	ResourceBookings      Resource = "bookings"
	ResourceDashboard     Resource = "dashboard"
	ResourceInspections   Resource = "inspections"
	ResourceAppointments  Resource = "appointments"
	ResourceDisputes      Resource = "disputes"
	ResourceChats         Resource = "chats"
	ResourceMessages      Resource = "messages"
	ResourceNotifications Resource = "notifications"
	ResourceSupport       Resource = "support"
	ResourceServices      Resource = "services"
	ResourceProfile       Resource = "profile"
	ResourceSettings      Resource = "settings"
)

const (
	DefaultTTL       = 180 * time.Second
	DefaultDetailTTL = 600 * time.Second
)

// Policy is the caching rule for one resource family. DetailTTL applies to
// single-record reads.
type Policy struct {
	TTL       time.Duration `yaml:"ttl"`
	DetailTTL time.Duration `yaml:"detail_ttl"`
	Sensitive bool          `yaml:"sensitive"`
}

type Policies map[Resource]Policy

func DefaultPolicies() Policies {
	return Policies{
		ResourceAuth:          {TTL: 60 * time.Second, DetailTTL: 60 * time.Second, Sensitive: true},
		ResourceBookings:      {TTL: 180 * time.Second, DetailTTL: DefaultDetailTTL},
		ResourceDashboard:     {TTL: 120 * time.Second, DetailTTL: 120 * time.Second},
		ResourceInspections:   {TTL: DefaultTTL, DetailTTL: DefaultDetailTTL},
		ResourceAppointments:  {TTL: DefaultTTL, DetailTTL: DefaultDetailTTL},
		ResourceDisputes:      {TTL: DefaultTTL, DetailTTL: DefaultDetailTTL},
		ResourceChats:         {TTL: 30 * time.Second, DetailTTL: 30 * time.Second},
		ResourceMessages:      {TTL: 30 * time.Second, DetailTTL: 30 * time.Second},
		ResourceNotifications: {TTL: 60 * time.Second, DetailTTL: 60 * time.Second},
		ResourceSupport:       {TTL: DefaultTTL, DetailTTL: DefaultDetailTTL},
		ResourceServices:      {TTL: DefaultTTL, DetailTTL: DefaultDetailTTL},
		ResourceProfile:       {TTL: 300 * time.Second, DetailTTL: 300 * time.Second},
		ResourceSettings:      {TTL: 300 * time.Second, DetailTTL: 300 * time.Second},
	}
}

// Lookup returns the policy for r, falling back to the defaults for unknown
// tags and filling zero durations.
func (p Policies) Lookup(r Resource) Policy {
	pol, ok := p[r]
	if !ok {
		pol = Policy{TTL: DefaultTTL, DetailTTL: DefaultDetailTTL}
	}
	if pol.TTL <= 0 {
		pol.TTL = DefaultTTL
	}
	if pol.DetailTTL <= 0 {
		pol.DetailTTL = DefaultDetailTTL
	}
	return pol
}

// TTL picks the list or detail TTL for r.
func (p Policies) TTL(r Resource, detail bool) time.Duration {
	pol := p.Lookup(r)
	if detail {
		return pol.DetailTTL
	}
	return pol.TTL
}

// sensitiveMarkers is a second line of defence: a key containing any of these
// never reaches the persistent layer, whatever its resource policy says.
var sensitiveMarkers = []string{"token", "password", "auth", "session", "credential"}

// Sensitive reports whether key must stay in process memory.
func (p Policies) Sensitive(r Resource, key string) bool {
	if p.Lookup(r).Sensitive {
		return true
	}
	k := strings.ToLower(key)
	for _, m := range sensitiveMarkers {
		if strings.Contains(k, m) {
			return true
		}
	}
	return false
}

type policyFile struct {
	Resources map[Resource]Policy `yaml:"resources"`
}

// LoadPolicies reads a YAML override file on top of DefaultPolicies. Fields
// left out of a resource keep their default value.
func LoadPolicies(path string) (Policies, error) {
	pols := DefaultPolicies()
	if path == "" {
		return pols, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f policyFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse cache policy file %s: %w", path, err)
	}
	for r, override := range f.Resources {
		base := pols.Lookup(r)
		if override.TTL > 0 {
			base.TTL = override.TTL
		}
		if override.DetailTTL > 0 {
			base.DetailTTL = override.DetailTTL
		}
		base.Sensitive = base.Sensitive || override.Sensitive
		pols[r] = base
	}
	return pols, nil
}
