// ABOUTME: Control protocol message definitions
// ABOUTME: Actions flow from the UI to the worker, events flow back
package control

import "fmt"

// Action is a request sent from the UI to the worker
type Action interface {
	isAction()
}

// Connect asks the worker to open a session to Address (ip:port)
type Connect struct {
	Address string
}

// Disconnect asks the worker to close the active session
type Disconnect struct{}

// Exit asks the worker loop to terminate
type Exit struct{}

func (Connect) isAction()    {}
func (Disconnect) isAction() {}
func (Exit) isAction()       {}

// Event is a status notification sent from the worker to the UI
type Event interface {
	isEvent()
	fmt.Stringer
}

// Ready reports the worker is idle and accepting Connect
type Ready struct{}

// SocketConnected reports a session pair is streaming
type SocketConnected struct{}

// SocketCannotConnect reports a connect attempt was refused
type SocketCannotConnect struct{}

// SocketClosed reports a user-requested disconnect completed
type SocketClosed struct{}

// SocketReconnecting reports the stream was lost and reconnection started
type SocketReconnecting struct{}

// AudioStreamError carries a failure description for the user
type AudioStreamError struct {
	Message string
}

func (Ready) isEvent()               {}
func (SocketConnected) isEvent()     {}
func (SocketCannotConnect) isEvent() {}
func (SocketClosed) isEvent()        {}
func (SocketReconnecting) isEvent()  {}
func (AudioStreamError) isEvent()    {}

func (Ready) String() string               { return "Ready" }
func (SocketConnected) String() string     { return "SocketConnected" }
func (SocketCannotConnect) String() string { return "SocketCannotConnect" }
func (SocketClosed) String() string        { return "SocketClosed" }
func (SocketReconnecting) String() string  { return "SocketReconnecting" }
func (e AudioStreamError) String() string  { return fmt.Sprintf("AudioStreamError(%s)", e.Message) }
