package indexcache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

// SchemaVersion is the current IndexFile schema version, included in
// the env hash so a schema change invalidates every cached record.
const SchemaVersion = 1

// msixFakeEnvVar mirrors pkg/source/msixstore.FixtureProvider's env
// var name; indexcache only cares whether it is set, not its value.
const msixFakeEnvVar = "APPLOCATE_MSIX_FAKE"

// relevantEnvVars lists the environment variables that change
// discovery semantics, per §9's data-model invariant: "a stable digest
// of {schema version, relevant env vars that change semantics}."
var relevantEnvVars = []string{"APPDATA", "LOCALAPPDATA", "PROGRAMDATA", "PATH"}

// ComputeEnvHash returns a stable digest of the schema version and the
// current values of the environment variables that change discovery
// semantics. Any mismatch against a loaded IndexFile's stored envHash
// invalidates every record (§4.6 step 3).
func ComputeEnvHash() string {
	var b strings.Builder
	b.WriteString("v")
	b.WriteString(itoa(SchemaVersion))
	for _, name := range relevantEnvVars {
		b.WriteByte('|')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(os.Getenv(name))
	}
	b.WriteByte('|')
	b.WriteString(msixFakeEnvVar)
	b.WriteString("-present=")
	if _, ok := os.LookupEnv(msixFakeEnvVar); ok {
		b.WriteString("1")
	} else {
		b.WriteString("0")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
