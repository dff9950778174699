package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractRedirectTarget(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "url param",
			in:   "https://click.swelist.com/c?url=https%3A%2F%2Fjobs.ashbyhq.com%2Facme%2F123",
			want: "https://jobs.ashbyhq.com/acme/123",
		},
		{
			name: "destination param",
			in:   "https://t.example.com/r?destination=https://boards.greenhouse.io/acme/jobs/9",
			want: "https://boards.greenhouse.io/acme/jobs/9",
		},
		{
			name: "non-http value is ignored",
			in:   "https://t.example.com/r?url=mailto:someone@example.com",
			want: "https://t.example.com/r?url=mailto:someone@example.com",
		},
		{
			name: "no redirect params",
			in:   "https://jobs.lever.co/acme/abc",
			want: "https://jobs.lever.co/acme/abc",
		},
		{
			name: "earlier param wins",
			in:   "https://t.example.com/r?link=https://b.example.com&url=https://a.example.com",
			want: "https://a.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRedirectTarget(tt.in))
		})
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips tracking params, fragment and trailing slash",
			in:   "https://Jobs.Lever.co/acme/abc-123/?utm_source=swelist&lever-origin=applied#apply",
			want: "https://jobs.lever.co/acme/abc-123",
		},
		{
			name: "keeps meaningful params",
			in:   "https://boards.greenhouse.io/acme/jobs?gh_jid=4567&gh_src=newsletter",
			want: "https://boards.greenhouse.io/acme/jobs?gh_jid=4567",
		},
		{
			name: "unwraps redirect then cleans",
			in:   "https://click.example.com/c?url=https%3A%2F%2Fjobs.ashbyhq.com%2Facme%2F1%3Futm_medium%3Demail",
			want: "https://jobs.ashbyhq.com/acme/1",
		},
		{
			name: "lowercases scheme and host only",
			in:   "HTTPS://EXAMPLE.COM/Careers/SWE-Intern",
			want: "https://example.com/Careers/SWE-Intern",
		},
		{
			name: "empty path becomes root",
			in:   "https://example.com",
			want: "https://example.com/",
		},
		{
			name: "trims whitespace",
			in:   "  https://example.com/jobs/1/  ",
			want: "https://example.com/jobs/1",
		},
		{
			name: "tracking param names are case-insensitive",
			in:   "https://example.com/jobs/1?UTM_SOURCE=x&FbClid=y",
			want: "https://example.com/jobs/1",
		},
		{
			name: "drops empty values",
			in:   "https://example.com/jobs/1?team=",
			want: "https://example.com/jobs/1",
		},
		{
			name: "sorts remaining params",
			in:   "https://example.com/jobs?b=2&a=1",
			want: "https://example.com/jobs?a=1&b=2",
		},
		{
			name: "keeps values containing semicolons",
			in:   "https://acme.icims.com/jobs/search?id=1;lang=en",
			want: "https://acme.icims.com/jobs/search?id=1%3Blang%3Den",
		},
		{
			name: "keeps malformed escapes as raw text",
			in:   "https://careers.acme.com/apply?job=123&q=100%",
			want: "https://careers.acme.com/apply?job=123&q=100%25",
		},
		{
			name: "unwraps only one level of redirect",
			in:   "https://t.example.com/r?url=https://a.com/r?url=https://b.com/j",
			want: "https://a.com/r?url=https%3A%2F%2Fb.com%2Fj",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.in))
		})
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://Jobs.Lever.co/acme/abc-123/?utm_source=swelist#x",
		"https://boards.greenhouse.io/acme/jobs?gh_jid=4567&gh_src=newsletter",
		"https://example.com",
		"https://example.com/jobs?b=2&a=1",
		"https://acme.icims.com/jobs/search?id=1;lang=en",
		"https://careers.acme.com/apply?job=123&q=100%",
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		assert.Equal(t, once, Canonicalize(once), in)
	}
}

func TestCanonicalize_NestedRedirect(t *testing.T) {
	in := "https://t.example.com/r?url=https://a.com/r?url=https://b.com/j"
	once := Canonicalize(in)
	assert.Equal(t, "https://a.com/r?url=https%3A%2F%2Fb.com%2Fj", once)
	assert.Equal(t, "https://b.com/j", Canonicalize(once))
}

func TestHash(t *testing.T) {
	a := Hash("https://jobs.lever.co/acme/abc?utm_campaign=fall")
	b := Hash("https://JOBS.lever.co/acme/abc/")
	c := Hash("https://jobs.lever.co/acme/other")

	assert.Len(t, a, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", a)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	u := "https://click.example.com/c?url=https://jobs.ashbyhq.com/acme/1"
	assert.Equal(t, Hash(u), Hash(Canonicalize(u)))

	assert.NotEqual(t,
		Hash("https://acme.icims.com/jobs/search?id=1;lang=en"),
		Hash("https://acme.icims.com/jobs/search?id=2;lang=en"))
	assert.NotEqual(t,
		Hash("https://careers.acme.com/apply?job=123&q=100%"),
		Hash("https://careers.acme.com/apply?job=123"))
}

func TestParseQuery(t *testing.T) {
	q := parseQuery("id=1;lang=en&q=100%&a+b=c%20d&&flag&=x")
	assert.Equal(t, []string{"1;lang=en"}, q["id"])
	assert.Equal(t, []string{"100%"}, q["q"])
	assert.Equal(t, []string{"c d"}, q["a b"])
	assert.Equal(t, []string{""}, q["flag"])
	assert.Len(t, q, 4)
}

func TestIsTrackingParam(t *testing.T) {
	assert.True(t, IsTrackingParam("utm_source"))
	assert.True(t, IsTrackingParam("GCLID"))
	assert.False(t, IsTrackingParam("gh_jid"))
}
