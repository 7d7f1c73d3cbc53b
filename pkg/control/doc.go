// ABOUTME: Control channel package
// ABOUTME: In-process message passing between the UI and the worker
// Package control implements the in-process control protocol between a user
// interface and the streaming worker.
//
// NewPair returns two distinct endpoint types so that each direction has a single
// owner. Sends never block; receives either block (Receive) or poll (TryReceive).
//
// Example:
//
//	ui, w := control.NewPair()
//	ui.Send(control.Connect{Address: "192.168.1.20:8000"})
//	action, err := w.Receive()
package control
