// Package camera exposes the configured camera inventory.
//
// The inventory is a flat JSON document edited by the installer, not by
// the service: this package only reads it. A missing or malformed
// document yields an empty inventory so the rest of the gateway keeps
// running; the problem is logged, not fatal.
//
// Every List call re-reads the document, so an installer can add or
// remove a camera without restarting the service.
package camera
