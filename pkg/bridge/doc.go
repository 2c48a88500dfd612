// Package bridge provides the serial command/response protocol spoken with
// the WiNoT peer module.
package bridge

// The peer module terminates the serial link and performs the actual cloud
// database I/O. The protocol between the controller and the peer is strictly
// half-duplex: one command envelope is written, then exactly one response
// envelope is read back before the next command may be sent.
//
// Each envelope is a single JSON document terminated by a newline byte:
//
//	{"CMD": "<CommandName>", "Data": {<field>: <scalar>, ...}}
//	{"Code": <int>, "Text": "<optional string>", "Value": <optional scalar>}
//
// There is no length prefix, no checksum and no request ID. Responses are
// correlated with the most recently sent command only by turn taking, so the
// Engine drains stale input before every send. An unsolicited frame from the
// peer (e.g. a late notice after an upgrade) is indistinguishable from the
// response to the next command.
//
// Producer: controller (Engine)
// Consumer: peer module
