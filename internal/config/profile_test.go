package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProfile = `{
  "_comment": "fill in your details",
  "personal": {
    "first_name": "Ada",
    "last_name": "Lovelace",
    "email": "ada@example.com",
    "phone": "555-0100",
    "location": {"city": "San Francisco", "state": "CA"},
    "github_url": "https://github.com/ada"
  },
  "education": [{"institution": "State University", "degree": "BS", "field_of_study": "CS", "gpa": 3.9}],
  "work_authorization": {"requires_sponsorship": false},
  "skills": ["go", "sql"]
}`

func TestLoadProfile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "profile.json", sampleProfile)

	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "Ada Lovelace", p.FullName())
	assert.Equal(t, "San Francisco, CA", p.Personal.Location.CityState())
	assert.Equal(t, "State University", p.CurrentEducation().Institution)
	assert.InDelta(t, 3.9, p.CurrentEducation().GPA, 1e-9)
	assert.True(t, p.WorkAuthorization.IsAuthorizedUS())
	assert.False(t, p.WorkAuthorization.RequiresSponsorship)

	assert.Contains(t, p.Extra, "skills")
	assert.NotContains(t, p.Extra, "_comment")
}

func TestLoadProfile_Errors(t *testing.T) {
	_, err := LoadProfile("/nonexistent/profile.json")
	assert.ErrorContains(t, err, "profile not found")

	bad := writeFile(t, t.TempDir(), "profile.json", `{"personal": `)
	_, err = LoadProfile(bad)
	assert.ErrorContains(t, err, "failed to parse profile JSON")

	invalid := writeFile(t, t.TempDir(), "profile.json", `{"personal": {"first_name": "Ada", "last_name": "L", "email": "not-an-email"}}`)
	_, err = LoadProfile(invalid)
	assert.ErrorContains(t, err, "invalid profile")
}

func TestLocation_CityState(t *testing.T) {
	assert.Equal(t, "Austin", Location{City: "Austin"}.CityState())
	assert.Equal(t, "TX", Location{State: "TX"}.CityState())
	assert.Equal(t, "", Location{}.CityState())
}

func TestProfile_EmptyEducation(t *testing.T) {
	p := &Profile{}
	assert.Equal(t, Education{}, p.CurrentEducation())
}
