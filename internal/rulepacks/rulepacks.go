// Package rulepacks embeds the rule pack applocate loads by default, so
// the rules engine (§4.3) participates in every invocation of the
// shipped binary without requiring an external YAML file on disk.
// Grounded on the teacher's internal/assets/schemas.embedded.go
// (go:embed of JSON schemas for installed-binary behavior); here the
// embedded asset is a YAML rule pack instead of a JSON schema.
package rulepacks

import _ "embed"

// Default is the rule pack bundled into the applocate binary. It covers
// a handful of common Windows applications whose config/data locations
// are well known (§4.3's VSCode example among them); users can still
// load additional packs on top of it via --rule-pack.
//
//go:embed default.yaml
var Default []byte
