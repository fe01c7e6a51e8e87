package discovery

// Fields is the advertised metadata a host fills into its discovery
// responses, and a client fills into its unicast query (spec.md §3.2).
type Fields struct {
	GameName string
	GameCRC  uint32
	TCPPort  uint16
	LinkMode string
}

// FieldsFunc supplies the current Fields at beacon time; transports pass a
// closure over their session record so advertised data (e.g. TCPPort once
// the listener is bound) can change between beacons.
type FieldsFunc func() Fields
