// Package device defines the domain model for registered network
// devices: the registry entry itself, its SSH credentials, and the
// validation rules (unique name, well-formed 48-bit MAC) the rest of
// the system relies on.
package device
