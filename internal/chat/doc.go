// Package chat provides the assistant chat-panel implementations used by the
// send command.
//
// Three providers exist:
//   - Events publishes chat.focus and chat.send on the event hub for the host
//     extension to forward into its chat panel.
//   - Webhook POSTs the message to an HTTP endpoint, signed with HMAC-SHA256.
//   - OpenAI sends the message as a chat completion and publishes the reply.
package chat
