package evnet

// Tag is a packed four-character identifier used for an Event's Target and
// Name fields. Tags are treated as opaque uint32 values for matching; the
// four-character form exists only for readability in logs and source code.
type Tag uint32

// StrToTag packs the first four bytes of s into a Tag. Shorter strings are
// right-padded with spaces, matching the fixed-width packing the wire
// format requires.
func StrToTag(s string) Tag {
	var b [4]byte
	copy(b[:], s)
	for i := len(s); i < 4; i++ {
		b[i] = ' '
	}
	return Tag(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

// TagToStr unpacks a Tag back into its four-character string form.
func TagToStr(t Tag) string {
	b := [4]byte{byte(t >> 24), byte(t >> 16), byte(t >> 8), byte(t)}
	return string(b[:])
}

// Well-known target tags.
var (
	TargetNet = StrToTag("net ") // internal handshake/error events
	TargetApp = StrToTag("app ") // application-level events
)

// Well-known name tags (the verbs observed in the source).
var (
	NameConnAccepted = StrToTag("sOkT") // connection accepted, local to the accepting side
	NameClientFin    = StrToTag("cFIN") // client closed
	NameServerFin    = StrToTag("sFIN") // server closed
	NameNetError     = StrToTag("nerr") // network error, payload = int32 code
	NameRequest      = StrToTag("cRqs") // application request
	NameResult       = StrToTag("sRst") // application result
	NameDeserializeT = StrToTag("cTst") // deserialization fixture
)

// Network error codes carried as the payload of a NameNetError event.
const (
	NetNotConnected  int32 = 11002
	NetDisconnected  int32 = 107
	NetBindFailed    int32 = 200
	NetListenFailed  int32 = 201
	NetAcceptFailed  int32 = 202
	NetHandshakeFail int32 = 203
	NetFramingError  int32 = 204
)
