package modules

import (
	"context"

	hwebsocket "github.com/aukilabs/hagall-common/websocket"
)

// Module is the interface that describes a module answering messages
// received on a quad service connection.
type Module interface {
	// Returns the module name.
	Name() string

	// Handles a given message. Modules are free to decide whether they handle a
	// message.
	//
	// Returning ErrModuleMsgSkip indicates that handling a message was skipped.
	//
	// Any other returned errors causes the current WebSocket client to be
	// disconnected.
	HandleMsg(context.Context, hwebsocket.ResponseSender, hwebsocket.Msg) error
}

// QueryClassifier is implemented by modules whose messages are answered from
// a spatial index. QueryKind returns the kind of index query a message runs,
// or an empty string when it runs none.
type QueryClassifier interface {
	QueryKind(hwebsocket.Msg) string
}
