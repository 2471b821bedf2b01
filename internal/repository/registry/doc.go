// Package registry persists the device registry to a YAML file in the
// user's config directory. Mutations are atomic (temp file + rename)
// and a failed mutation leaves both the in-memory list and the on-disk
// file unchanged. A missing file is an empty registry; a file that
// exists but cannot be parsed surfaces as ErrCorrupt.
package registry
