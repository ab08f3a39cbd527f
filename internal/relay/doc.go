// Package relay forwards relay switching commands to edge relay
// controllers.
//
// The gateway is a stateless pass-through: it addresses the controller
// by the IP supplied in each command, posts the relay/state payload to
// the controller's fixed control port, and relays the controller's
// response verbatim. It keeps no device registry and no relay state;
// the controller is the sole authority on whether a switch happened.
//
// Relay and state values are carried as raw JSON so controller-specific
// encodings (numbers, strings, objects) survive the hop untouched.
package relay
