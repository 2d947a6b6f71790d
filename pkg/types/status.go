package types

// ServerStatus is the single byte following ReadyForQuery's tag and length,
// reporting the backend's transaction state. The core tracks no transaction
// state beyond idle, so every ReadyForQuery the core emits carries ServerIdle.
type ServerStatus byte

const (
	ServerIdle              ServerStatus = 'I'
	ServerTransactionBlock  ServerStatus = 'T'
	ServerTransactionFailed ServerStatus = 'E'
)
