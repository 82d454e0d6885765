// Package serialport provides the byte-stream transport used by a capture session.
//
// A [Port] is a non-blocking duplex byte stream: Read returns whatever bytes are
// currently available (possibly none) without waiting, Write queues outbound
// bytes, and Drain blocks until queued bytes have been transmitted.
//
// [Open] opens a real serial device through go.bug.st/serial with the device's
// fixed line settings (115200 8N1 by default). [ListPorts] and [Detect] enumerate
// the serial ports attached to the host. [NewLoopback] creates an in-memory
// connected pair of ports, used by tests and by the device emulator.
package serialport
