package wiremsg

import "google.golang.org/protobuf/encoding/protowire"

// ClientHandshake is sent plaintext as the first control message after
// ConnectACK (spec.md §4.6).
type ClientHandshake struct{}

func (m *ClientHandshake) Marshal() []byte    { return nil }
func (m *ClientHandshake) Unmarshal([]byte) error { return nil }

// ServerHandshake carries the negotiated MTU.
type ServerHandshake struct {
	MTU uint32
}

const fServerHandshakeMTU protowire.Number = 1

func (m *ServerHandshake) Marshal() []byte {
	var b []byte
	return appendUint32(b, fServerHandshakeMTU, m.MTU)
}

func (m *ServerHandshake) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fServerHandshakeMTU:
			v, n := protowire.ConsumeVarint(b)
			m.MTU = uint32(v)
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// AuthenticationRequest carries the HMAC-SHA-256 token, protocol version,
// and steam id (spec.md §4.3/§4.6).
type AuthenticationRequest struct {
	Token           []byte
	ProtocolVersion uint32
	SteamID         uint64
}

const (
	fAuthReqToken   protowire.Number = 1
	fAuthReqVersion protowire.Number = 2
	fAuthReqSteamID protowire.Number = 3
)

func (m *AuthenticationRequest) Marshal() []byte {
	var b []byte
	b = appendBytes(b, fAuthReqToken, m.Token)
	b = appendUint32(b, fAuthReqVersion, m.ProtocolVersion)
	b = appendUint64(b, fAuthReqSteamID, m.SteamID)
	return b
}

func (m *AuthenticationRequest) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fAuthReqToken:
			v, n := protowire.ConsumeBytes(b)
			m.Token = append([]byte(nil), v...)
			return n, nil
		case fAuthReqVersion:
			v, n := protowire.ConsumeVarint(b)
			m.ProtocolVersion = uint32(v)
			return n, nil
		case fAuthReqSteamID:
			v, n := protowire.ConsumeVarint(b)
			m.SteamID = v
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}

// AuthenticationResult mirrors the original's EAuthenticationResult enum,
// with SUCCEEDED=0 the only non-terminal value (spec.md §4.6).
type AuthenticationResult int32

const (
	AuthSucceeded            AuthenticationResult = 0
	AuthFailed               AuthenticationResult = 1
	AuthDenied               AuthenticationResult = 2
	AuthBusy                 AuthenticationResult = 3
	AuthTimedOut             AuthenticationResult = 4
	AuthTokenInvalid         AuthenticationResult = 5
)

// AuthenticationResponse reports the result of an AuthenticationRequest.
type AuthenticationResponse struct {
	Result AuthenticationResult
}

const fAuthRespResult protowire.Number = 1

func (m *AuthenticationResponse) Marshal() []byte {
	var b []byte
	return appendInt32(b, fAuthRespResult, int32(m.Result))
}

func (m *AuthenticationResponse) Unmarshal(b []byte) error {
	return parseFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case fAuthRespResult:
			v, n := protowire.ConsumeVarint(b)
			m.Result = AuthenticationResult(int32(v))
			return n, nil
		default:
			return skip(typ, b), nil
		}
	})
}
