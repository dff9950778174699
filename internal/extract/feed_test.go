package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/jobly/internal/ats"
)

func TestParseFeed_Filtered(t *testing.T) {
	opts := FeedOptions{
		TitleKeywords: []string{"intern", "software engineer"},
		SkipATS:       []ats.Type{ats.Workday, ats.Taleo},
	}
	jobs := newTestExtractor().ParseFeed(loadFixture(t, "feed_readme.html"), opts)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Stark Industries", jobs[0].Company)
	assert.Equal(t, "Software Engineer Intern", jobs[0].Title)
	assert.Equal(t, "https://jobs.ashbyhq.com/stark/111", jobs[0].URL)
	assert.Equal(t, ats.Ashby, jobs[0].ATSType)
	assert.Equal(t, "New York, NY", jobs[0].Location)
	assert.Empty(t, jobs[0].SourceEmailID)

	// Continuation row reuses the company above it.
	assert.Equal(t, "Stark Industries", jobs[1].Company)
	assert.Equal(t, "Backend Intern", jobs[1].Title)
	assert.Equal(t, ats.Greenhouse, jobs[1].ATSType)
	assert.Equal(t, "Remote", jobs[1].Location)
}

func TestParseFeed_NoFilters(t *testing.T) {
	jobs := newTestExtractor().ParseFeed(loadFixture(t, "feed_readme.html"), FeedOptions{})
	require.Len(t, jobs, 4)

	titles := make([]string, 0, len(jobs))
	for _, j := range jobs {
		titles = append(titles, j.Title)
	}
	assert.Equal(t, []string{
		"Software Engineer Intern",
		"Backend Intern",
		"Marketing Coordinator",
		"Systems Intern",
	}, titles)
	assert.Equal(t, "Wayne Enterprises", jobs[3].Company)
	assert.Equal(t, ats.Workday, jobs[3].ATSType)
}

func TestParseFeed_ClosedRow(t *testing.T) {
	html := `<table>
		<tr><th>Company</th><th>Role</th><th>Location</th><th>Application</th></tr>
		<tr><td>Acme</td><td>SWE Intern</td><td>Remote</td><td>🔒 <a href="https://jobs.lever.co/acme/1"><img alt="Apply"></a></td></tr>
	</table>`

	assert.Empty(t, newTestExtractor().ParseFeed(html, FeedOptions{}))
}

func TestParseFeed_OnlyThirdPartyLink(t *testing.T) {
	html := `<table>
		<tr><th>Company</th><th>Role</th><th>Location</th><th>Application</th></tr>
		<tr><td>Acme</td><td>SWE Intern</td><td>Remote</td><td><a href="https://simplify.jobs/p/1"><img alt="Simplify"></a></td></tr>
	</table>`

	assert.Empty(t, newTestExtractor().ParseFeed(html, FeedOptions{}))
}

func TestParseFeed_NoMatchingTable(t *testing.T) {
	html := `<table><tr><th>Company</th><th>Role</th></tr>
		<tr><td>Acme</td><td>Intern</td><td>x</td><td><a href="https://jobs.lever.co/a/1"><img alt="Apply"></a></td></tr></table>`

	assert.Empty(t, newTestExtractor().ParseFeed(html, FeedOptions{}))
	assert.Empty(t, newTestExtractor().ParseFeed("", FeedOptions{}))
}

func TestParseFeed_EmptyLocation(t *testing.T) {
	html := `<table>
		<tr><th>Company</th><th>Role</th><th>Location</th><th>Application</th></tr>
		<tr><td>Acme</td><td>SWE Intern</td><td> </td><td><a href="https://jobs.lever.co/acme/1"><img alt="apply"></a></td></tr>
	</table>`

	jobs := newTestExtractor().ParseFeed(html, FeedOptions{})
	require.Len(t, jobs, 1)
	assert.Empty(t, jobs[0].Location)
	assert.Equal(t, ats.Lever, jobs[0].ATSType)
}
