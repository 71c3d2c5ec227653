// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/gorilla/rpc/v2/json2"
	"github.com/juju/errors"
)

// Version is the protocol version carried by every envelope.
const Version = "2.0"

var nullValue = json.RawMessage("null")

// Envelope is a single JSON-RPC 2.0 message. One struct covers the four
// message shapes; use the Is* methods to classify it.
type Envelope struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *json2.Error    `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// HasID reports whether the envelope carries a non-null id.
func (e *Envelope) HasID() bool {
	return len(e.ID) > 0 && !bytes.Equal(e.ID, nullValue)
}

// IsCall reports whether the envelope is a request expecting a response.
func (e *Envelope) IsCall() bool {
	return e.Method != "" && e.HasID()
}

// IsNotification reports whether the envelope is a request without an id.
func (e *Envelope) IsNotification() bool {
	return e.Method != "" && !e.HasID()
}

// IsResponse reports whether the envelope answers an earlier call.
func (e *Envelope) IsResponse() bool {
	return e.Method == "" && e.HasID() && (len(e.Result) > 0 || e.Error != nil)
}

// Key returns the canonical text of the envelope id. String ids are
// unquoted, numeric ids are returned as written. An absent or null id has
// the empty key.
func (e *Envelope) Key() string {
	return idKey(e.ID)
}

func idKey(id json.RawMessage) string {
	raw := bytes.TrimSpace(id)
	if len(raw) == 0 || bytes.Equal(raw, nullValue) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// EncodeCall renders a call envelope for method with the given id.
func EncodeCall(method string, params any, id string) (string, error) {
	rawID, err := json.Marshal(id)
	if err != nil {
		return "", errors.Trace(err)
	}
	return encodeRequest(method, params, rawID)
}

// EncodeNotification renders a notification envelope. It carries no id.
func EncodeNotification(method string, params any) (string, error) {
	return encodeRequest(method, params, nil)
}

func encodeRequest(method string, params any, id json.RawMessage) (string, error) {
	if method == "" {
		return "", errors.NotValidf("empty method name")
	}
	env := &Envelope{Version: Version, Method: method, ID: id}
	if params != nil {
		raw, err := EncodeValue(params)
		if err != nil {
			return "", errors.Annotatef(err, "encoding params for %q", method)
		}
		env.Params = raw
	}
	return marshalEnvelope(env)
}

// EncodeResult renders a success response echoing id. A nil result is
// sent as an explicit null.
func EncodeResult(id json.RawMessage, result any) (string, error) {
	raw, err := EncodeValue(result)
	if err != nil {
		return "", errors.Annotate(err, "encoding result")
	}
	return marshalEnvelope(&Envelope{Version: Version, Result: raw, ID: id})
}

// EncodeError renders an error response echoing id.
func EncodeError(id json.RawMessage, wire *json2.Error) (string, error) {
	if wire == nil {
		return "", errors.NotValidf("nil wire error")
	}
	return marshalEnvelope(&Envelope{Version: Version, Error: wire, ID: id})
}

func marshalEnvelope(env *Envelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", errors.Trace(err)
	}
	return string(data), nil
}

// Decode parses one envelope. Text that is not a JSON object yields a nil
// envelope and a *DecodeError. A well-formed object that is not a valid
// envelope yields both the envelope, so its id can still be answered, and a
// *DecodeError.
func Decode(text string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, &DecodeError{What: "envelope", Err: err}
	}
	if err := env.validate(); err != nil {
		return &env, &DecodeError{What: "envelope", Err: err}
	}
	return &env, nil
}

func (e *Envelope) validate() error {
	if e.Version != Version {
		return errors.NotValidf("protocol version %q", e.Version)
	}
	if len(e.ID) > 0 {
		switch raw := bytes.TrimSpace(e.ID); {
		case bytes.Equal(raw, nullValue):
		case raw[0] == '"':
		default:
			if _, err := strconv.ParseFloat(string(raw), 64); err != nil {
				return errors.NotValidf("id %s", raw)
			}
		}
	}
	if e.Method != "" {
		if len(e.Result) > 0 || e.Error != nil {
			return errors.NotValidf("request carrying a result")
		}
		return nil
	}
	if !e.HasID() {
		return errors.NotValidf("message without method or id")
	}
	if len(e.Result) > 0 && e.Error != nil {
		return errors.NotValidf("response with both result and error")
	}
	if len(e.Result) == 0 && e.Error == nil {
		return errors.NotValidf("response without result or error")
	}
	return nil
}
