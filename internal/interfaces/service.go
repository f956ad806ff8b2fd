package interfaces

// Service is a server of the daemon, like the gRPC/HTTP one-port server.
// Start returns once the listeners are open and serving happens in
// background until Stop.
type Service interface {
	Start() error
	Stop()
}
