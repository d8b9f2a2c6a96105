// Package liveness drives the timed multi-frame capture protocol that
// proves a live subject to the remote verifier: a frontal frame, a
// turned-head frame after a pause long enough for the physical motion,
// and optional stabilization frames. Frame order is semantically
// significant and preserved end to end.
//
// The camera is modeled behind small interfaces so the same protocol
// runs against a real device, a directory of stills, or a test fake.
// Acquisition is scoped: the camera is released on every exit path,
// including cancellation mid-sequence.
package liveness
