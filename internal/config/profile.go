package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Profile is the applicant data used to fill application forms.
type Profile struct {
	Personal          Personal          `json:"personal"`
	Education         []Education       `json:"education,omitempty"`
	WorkAuthorization WorkAuthorization `json:"work_authorization"`
	Demographics      Demographics      `json:"demographics"`

	// Extra holds any other top-level keys, minus "_comment".
	Extra map[string]json.RawMessage `json:"-"`
}

// Personal holds contact details.
type Personal struct {
	FirstName   string   `json:"first_name" validate:"required"`
	LastName    string   `json:"last_name" validate:"required"`
	Email       string   `json:"email" validate:"required,email"`
	Phone       string   `json:"phone,omitempty"`
	Location    Location `json:"location"`
	LinkedInURL string   `json:"linkedin_url,omitempty" validate:"omitempty,url"`
	GitHubURL   string   `json:"github_url,omitempty" validate:"omitempty,url"`
	WebsiteURL  string   `json:"website_url,omitempty" validate:"omitempty,url"`
}

// Location is where the applicant lives.
type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Education is one degree entry; the first entry is treated as current.
type Education struct {
	Institution  string  `json:"institution,omitempty"`
	Degree       string  `json:"degree,omitempty"`
	FieldOfStudy string  `json:"field_of_study,omitempty"`
	StartDate    string  `json:"start_date,omitempty"`
	EndDate      string  `json:"end_date,omitempty"`
	GPA          float64 `json:"gpa,omitempty"`
	GPAScale     float64 `json:"gpa_scale,omitempty"`
}

// WorkAuthorization answers the standard eligibility questions.
type WorkAuthorization struct {
	AuthorizedUS        *bool `json:"authorized_us,omitempty"`
	RequiresSponsorship bool  `json:"requires_sponsorship"`
}

// Demographics are optional EEO answers.
type Demographics struct {
	Gender           string `json:"gender,omitempty"`
	RaceEthnicity    string `json:"race_ethnicity,omitempty"`
	VeteranStatus    string `json:"veteran_status,omitempty"`
	DisabilityStatus string `json:"disability_status,omitempty"`
}

var profileKeys = map[string]bool{
	"personal": true, "education": true, "work_authorization": true,
	"demographics": true, "_comment": true,
}

// LoadProfile reads and validates the profile JSON at path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("profile not found: %s (copy profile_template.json there and fill in your details)", path)
		}
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	for key, value := range raw {
		if profileKeys[key] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[key] = value
	}

	if err := validator.New().Struct(&p); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

// FullName joins the first and last name.
func (p *Profile) FullName() string {
	return strings.TrimSpace(p.Personal.FirstName + " " + p.Personal.LastName)
}

// CurrentEducation returns the first education entry, or a zero value.
func (p *Profile) CurrentEducation() Education {
	if len(p.Education) == 0 {
		return Education{}
	}
	return p.Education[0]
}

// IsAuthorizedUS defaults to true when unset.
func (w WorkAuthorization) IsAuthorizedUS() bool {
	return w.AuthorizedUS == nil || *w.AuthorizedUS
}

// CityState formats the location as "City, ST".
func (l Location) CityState() string {
	switch {
	case l.City != "" && l.State != "":
		return l.City + ", " + l.State
	case l.City != "":
		return l.City
	default:
		return l.State
	}
}
