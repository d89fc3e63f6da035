// Package relay moves WebSocket frames between a playground client and the
// upstream streaming endpoint.
//
// Frames are opaque: the relay never parses the application protocol carried
// over the socket. Client frames that arrive before the upstream connection is
// ready are held in a bounded pending buffer and drained in order once the
// upstream opens.
package relay
