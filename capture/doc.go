// Package capture implements the host side of the gesture capture protocol: a
// line-oriented reliability protocol spoken with an embedded device that streams
// accelerometer samples over a serial link.
//
// # Protocol Overview
//
// The device drives a fixed sequence of sentinel marker lines. The host
// synchronizes on them and answers with short control tokens:
//
//	device                              host
//	<<<CONFIG>>>  key:value ...  <<<CONFIG_END>>>
//	<<<READY>>>                         "\n"   (start of gesture)
//	<<<REP:n>>>
//	<<<DATA>>>  seq;x;y;z;label ...  <<<DATA_END>>>
//	<<<COUNT:n>>>                       ACK | NACK
//	...                                 (NACK: device resends the repetition)
//	<<<GESTURE_DONE>>>
//	<<<DONE>>>
//
// A repetition is accepted only when the number of sample lines received by the
// host equals both the configured sample count and the count reported by the
// device. Mismatches are answered with NACK up to the configured attempt limit;
// the last attempt is accepted with ACK regardless, so a single bad repetition
// never stalls the session.
//
// # Timeouts
//
// Every wait is bounded by its own wall-clock budget measured from the start of
// that wait:
//
//   - ConfigTimeout: waiting for <<<CONFIG>>> while the device boots
//   - MarkerTimeout: any other marker wait (READY, REP, DATA, GESTURE_DONE, DONE)
//   - ConfigLineTimeout: per handshake line; expiry ends the handshake
//   - DataLineTimeout: per sample line; expiry ends the data block
//   - CountTimeout: waiting for the COUNT line after the data block
//
// Marker timeouts are fatal to the session and surface as [ErrMarkerTimeout].
// Per-line timeouts are absorbed as structural end-of-block signals.
//
// # Concurrency
//
// A [Session] runs on the caller's goroutine. The only suspension point is the
// [LineReader] poll loop; cancelling the context passed to [Session.Run] or
// [Capture] aborts any wait, and [Capture] closes the port on every exit path.
package capture
