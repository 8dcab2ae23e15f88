// Package groundwork carries the module version.
package groundwork

// Version is the groundwork release version. The CLI reports this value
// unless it was overridden at build time.
const Version = "0.1.0"
