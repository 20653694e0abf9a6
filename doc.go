// Package taskbridge implements the bidirectional protocol between a host
// application and an embedded child task UI: the typed wire message contract,
// the child-side lifecycle state machine with at-most-once completion, the
// host-side driver, and a pluggable message channel abstraction.
//
// The HTTP side-channel operations the child invokes against the backend
// (task execution, file transfer) live in the api subpackage; a byte-stream
// channel transport for non-browser embeddings lives in the framed
// subpackage.
//
// Handshake and lifecycle: the child creates a Session over a Channel, which
// emits READY. The host answers with INIT carrying the run identity, inputs,
// and task context; the session becomes ready and exposes API clients bound
// to the context's auth fields. The child works, emitting RESIZE and LOG
// signals, and finishes with Complete or Cancel, delivered at most once per
// run. DESTROY notifies the child of teardown independent of completion.
package taskbridge
