package wire

import (
	"github.com/statewire/walletcore/pkg/sign"
)

// ErrorMethod marks a Response whose payload carries an error.
const ErrorMethod = "error"

// Request is an outbound message: a payload plus the signatures
// authorizing it. State-changing off-chain operations require at least the
// session-key signature; read-only operations may carry none.
//
// Wire form: {"req": [id, method, params, ts], "sig": [...]}
type Request struct {
	Req Payload          `json:"req"`
	Sig []sign.Signature `json:"sig"`
}

// NewRequest wraps a payload with optional signatures.
func NewRequest(payload Payload, sigs ...sign.Signature) Request {
	return Request{Req: payload, Sig: sigs}
}

// Response is an inbound message mirroring Request. The payload echoes the
// RequestID of the request it answers; unsolicited notifications carry a
// RequestID no local request ever used.
//
// Wire form: {"res": [id, method, params, ts], "sig": [...]}
type Response struct {
	Res Payload          `json:"res"`
	Sig []sign.Signature `json:"sig"`
}

// NewResponse wraps a payload with optional signatures.
func NewResponse(payload Payload, sigs ...sign.Signature) Response {
	return Response{Res: payload, Sig: sigs}
}

// NewErrorResponse builds a Response carrying an error message for the
// given request ID.
func NewErrorResponse(requestID uint64, errMsg string, sigs ...sign.Signature) Response {
	return NewResponse(NewPayload(requestID, ErrorMethod, NewErrorParams(errMsg)), sigs...)
}

// Err returns the error carried by the response, or nil for a success
// response.
func (r Response) Err() error {
	if r.Res.Method != ErrorMethod {
		return nil
	}
	return r.Res.Params.Err()
}

// SignerAddresses recovers the addresses that signed the response payload,
// in signature order.
func (r Response) SignerAddresses() ([]string, error) {
	hash, err := r.Res.Hash()
	if err != nil {
		return nil, err
	}

	addrs := make([]string, 0, len(r.Sig))
	for _, s := range r.Sig {
		addr, err := sign.RecoverAddress(hash, s)
		if err != nil {
			return nil, err
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
