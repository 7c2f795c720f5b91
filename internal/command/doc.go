// Package command holds the voice-command registry: an ordered table of
// (matcher, action, description) entries checked in registration order.
//
// Matching works on normalized transcripts. Normalization trims the text,
// collapses runs of whitespace and drops trailing sentence punctuation that
// recognition engines like to append. Comparison is case-insensitive and
// always covers the whole transcript; the greeting matcher is the only one
// that accepts a free-text remainder, which it captures as the payload.
//
// The first spec whose matcher accepts the text wins, so a precise phrase
// such as "stop listening" must be registered before any catch-all pattern
// that could also accept it.
package command
