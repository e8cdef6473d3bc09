// Package connectors provides document sources. The filesystem connector
// serves documents from a local directory and watches it for changes.
package connectors
