package ats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want Type
	}{
		{"ashby", "https://jobs.ashbyhq.com/acme/123", Ashby},
		{"ashby short", "https://jobs.ashby.io/acme", Ashby},
		{"greenhouse board", "https://boards.greenhouse.io/acme/jobs/1", Greenhouse},
		{"greenhouse short link", "https://grnh.se/abc123", Greenhouse},
		{"greenhouse embedded", "https://acme.com/careers?gh_jid=991", Greenhouse},
		{"lever", "https://jobs.lever.co/acme/uuid", Lever},
		{"workday", "https://acme.wd5.myworkdayjobs.com/en-US/careers/job/1", Workday},
		{"workday bare", "https://www.workday.com/jobs", Workday},
		{"smartrecruiters", "https://jobs.smartrecruiters.com/Acme/1", SmartRecruiters},
		{"icims", "https://careers-acme.icims.com/jobs/1/job", ICIMS},
		{"icims flag", "https://acme.com/jobs?icims=1", ICIMS},
		{"taleo", "https://acme.taleo.net/careersection/1", Taleo},
		{"workable", "https://apply.workable.com/acme/j/1", Workable},
		{"breezy", "https://acme.breezy.hr/p/1", Breezy},
		{"simplify", "https://simplify.jobs/p/1", Simplify},
		{"case insensitive", "HTTPS://JOBS.LEVER.CO/ACME", Lever},
		{"unknown", "https://acme.com/careers/1", Unknown},
		{"empty", "", Unknown},
		{"jobvite is unknown", "https://jobs.jobvite.com/acme/job/1", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.url))
		})
	}
}

func TestClassify_OrderMatters(t *testing.T) {
	// A lever URL carrying a gh_jid param resolves to the earlier rule.
	assert.Equal(t, Greenhouse, Classify("https://jobs.lever.co/acme/1?gh_jid=5"))
}

func TestParse(t *testing.T) {
	assert.Equal(t, Ashby, Parse("ashby"))
	assert.Equal(t, Greenhouse, Parse(" Greenhouse "))
	assert.Equal(t, Unknown, Parse("monster"))
	assert.Equal(t, Unknown, Parse(""))
}

func TestRequiresAccount(t *testing.T) {
	assert.True(t, Workday.RequiresAccount())
	assert.True(t, Taleo.RequiresAccount())
	assert.False(t, ICIMS.RequiresAccount())
	assert.False(t, Ashby.RequiresAccount())
	assert.False(t, Unknown.RequiresAccount())
}

func TestIsJobBoardURL(t *testing.T) {
	assert.True(t, IsJobBoardURL("https://jobs.jobvite.com/acme/job/1"))
	assert.True(t, IsJobBoardURL("https://acme.bamboohr.com/careers/12"))
	assert.True(t, IsJobBoardURL("https://boards.greenhouse.io/acme"))
	assert.True(t, IsJobBoardURL("https://GRNH.SE/x1"))
	assert.False(t, IsJobBoardURL("https://acme.com/about"))
}

func TestAll(t *testing.T) {
	all := All()
	assert.Equal(t, Ashby, all[0])
	assert.Equal(t, Unknown, all[len(all)-1])
	assert.Len(t, all, 11)
}
