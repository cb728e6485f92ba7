package config

import "os"

// ExpandEnv expands ${VAR}/$VAR references in YAML content before parsing,
// exactly as the teacher's config.ExpandEnv does. Missing variables expand
// to empty string; validation catches any field left empty that way.
func ExpandEnv(data []byte) []byte {
	return []byte(os.ExpandEnv(string(data)))
}
