package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBackslashAndQuotes(t *testing.T) {
	assert.Equal(t, "C:/Program Files/app/app.exe", Normalize(`"C:\Program Files\app\app.exe"`))
}

func TestNormalizeTrailingSlash(t *testing.T) {
	assert.Equal(t, "C:/tools/app", Normalize(`C:\tools\app\`))
}

func TestNormalizeDriveRootKeepsTrailingSlash(t *testing.T) {
	assert.Equal(t, "C:/", Normalize(`C:\`))
	assert.Equal(t, "C:", Normalize(`C:`))
}

func TestNormalizeExpandsEnv(t *testing.T) {
	t.Setenv("APPLOCATE_TEST_VAR", `C:\Users\bob`)
	assert.Equal(t, "C:/Users/bob/app", Normalize(`%APPLOCATE_TEST_VAR%\app`))
}

func TestContainsUnexpandedVar(t *testing.T) {
	assert.True(t, ContainsUnexpandedVar(Normalize("%APPLOCATE_DEFINITELY_UNSET%/app")))
	assert.False(t, ContainsUnexpandedVar("c:/tools/app"))
}

func TestEqualTreatsSeparatorsEquivalently(t *testing.T) {
	assert.True(t, Equal(`C:\tools\app.exe`, "c:/tools/app.exe"))
}

func TestBaseDirStemExt(t *testing.T) {
	p := "c:/program files/app/app.exe"
	assert.Equal(t, "app.exe", Base(p))
	assert.Equal(t, "c:/program files/app", Dir(p))
	assert.Equal(t, "app", Stem(p))
	assert.Equal(t, ".exe", Ext(p))
}
