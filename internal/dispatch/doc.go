// Package dispatch turns transcript events into command invocations.
//
// The dispatcher is the core of the voice pipeline. For each event it:
//   - drops the event when the session is not listening
//   - surfaces interim (unstable) text as live feedback only
//   - debounces final text against the last honored dispatch
//   - looks the text up in the command registry and runs the first match
//
// Processing is synchronous and single-threaded: one event runs to completion,
// including any action it triggers, before the next is considered. The
// dispatcher never reads the wall clock; the debounce window is measured with
// the timestamps carried by the events, so an identical event sequence always
// produces the same invocations.
//
// Dispatch state is not held here. The session controller owns it and passes it
// in with every call, which keeps the listening gate and the debounce clock in
// one record with one writer.
package dispatch
