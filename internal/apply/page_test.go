package apply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsXPath(t *testing.T) {
	assert.True(t, isXPath("//button[contains(., 'Next')]"))
	assert.True(t, isXPath("(//input)[1]"))
	assert.False(t, isXPath("#first_name"))
	assert.False(t, isXPath("input[type='email']"))
	assert.True(t, isXPath(buttonText("a", "Apply")))
}

func TestScript(t *testing.T) {
	s := script(visibleJS, `input[name="x"]`)
	assert.True(t, strings.HasPrefix(s, "("+visibleJS+")("+findJS+","))
	assert.True(t, strings.HasSuffix(s, `,"input[name=\"x\"]")`))
	assert.Equal(t, "(f)("+findJS+")", script("f"))
}
