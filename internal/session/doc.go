// Package session owns the listening state of the voice pipeline.
//
// The Controller is a two-state machine (Stopped, Listening) that gates the
// dispatcher, activates and deactivates the transcript source, and classifies
// recognizer errors. It is not safe for concurrent use: every call must come
// from one goroutine. Loop provides that goroutine for a running daemon, so
// API requests, recognizer frames and shutdown are applied strictly in the
// order they arrive.
package session
