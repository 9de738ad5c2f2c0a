package port

// SignalSink дискретные выходы ACCEPT/REJECT (GPIO, катушки Modbus).
// Линии независимы: одновременная установка обеих не гарантируется.
type SignalSink interface {
	SetAccept(on bool) error
	SetReject(on bool) error
}
