package domain

// ConnEvent is what a transport hands to the hub: either a raw frame or a close notice.
type ConnEvent struct {
	Conn   ConnID
	Frame  []byte
	Closed bool
}
