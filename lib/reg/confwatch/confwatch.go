// Package confwatch applies live configuration changes: it watches a flat
// properties file, overlays recognized keys on the base client config and
// tells listeners which keys changed.
package confwatch

// ChangeEvent is one applied configuration change.
type ChangeEvent struct {
	// Keys lists every added, removed or modified property key, sorted.
	// Never nil; a change always knows its keys, even when there are none.
	Keys []string
}

// Listener receives applied configuration changes.
type Listener interface {
	HandleConfigChange(event ChangeEvent)
}
