package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesLooseSubstring(t *testing.T) {
	assert.True(t, Matches("code", false, "Visual Studio Code.exe"))
}

func TestMatchesLooseMultiWordAllTokens(t *testing.T) {
	assert.True(t, Matches("foo bar", false, "foobar installer directory"))
}

func TestMatchesLooseCollapsedForm(t *testing.T) {
	assert.True(t, Matches("fooapp", false, "Foo App"))
}

func TestMatchesStrictRequiresAllTokens(t *testing.T) {
	assert.True(t, Matches("foo bar", true, "foo-bar-service"))
	assert.False(t, Matches("foo bar", true, "foo-only"))
}

func TestMatchesEmptyQueryNeverMatches(t *testing.T) {
	assert.False(t, Matches("", false, "anything"))
}
