// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/gorilla/rpc/v2/json2"
)

type color int

const (
	red color = iota
	green
	blue
)

var colors = NewEnum("color", map[color]string{red: "red", green: "green", blue: "blue"})

func (c color) MarshalText() ([]byte, error) {
	name, err := colors.Name(c)
	return []byte(name), err
}

func (c *color) UnmarshalText(text []byte) error {
	v, err := colors.Parse(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

type crate struct {
	ID     int           `json:"id"`
	Label  *string       `json:"label,omitempty"`
	Color  color         `json:"color"`
	Counts map[color]int `json:"counts"`
	Inner  []crate       `json:"inner,omitempty"`
}

func TestEncodeCall(t *testing.T) {
	c := qt.New(t)

	text, err := EncodeCall("move_trader", Named{"sector_id": 5}, "1")
	c.Assert(err, qt.IsNil)
	c.Assert(text, qt.JSONEquals, map[string]any{
		"jsonrpc": "2.0",
		"method":  "move_trader",
		"params":  map[string]any{"sector_id": 5},
		"id":      "1",
	})
}

func TestEncodeNotificationHasNoID(t *testing.T) {
	c := qt.New(t)

	text, err := EncodeNotification("on_new_sector", Positional{1, "two"})
	c.Assert(err, qt.IsNil)
	c.Assert(text, qt.Equals, `{"jsonrpc":"2.0","method":"on_new_sector","params":[1,"two"]}`)

	env, err := Decode(text)
	c.Assert(err, qt.IsNil)
	c.Assert(env.IsNotification(), qt.IsTrue)
	c.Assert(env.HasID(), qt.IsFalse)
}

func TestEncodeEmptyMethod(t *testing.T) {
	c := qt.New(t)

	_, err := EncodeCall("", nil, "1")
	c.Assert(err, qt.ErrorMatches, "empty method name not valid")
}

func TestEncodeResultNull(t *testing.T) {
	c := qt.New(t)

	text, err := EncodeResult(json.RawMessage(`"3"`), nil)
	c.Assert(err, qt.IsNil)
	c.Assert(text, qt.Equals, `{"jsonrpc":"2.0","result":null,"id":"3"}`)

	env, err := Decode(text)
	c.Assert(err, qt.IsNil)
	c.Assert(env.IsResponse(), qt.IsTrue)
	c.Assert(string(env.Result), qt.Equals, "null")
}

func TestEncodeError(t *testing.T) {
	c := qt.New(t)

	text, err := EncodeError(json.RawMessage(`"2"`), &json2.Error{Code: 32011, Message: "no such port"})
	c.Assert(err, qt.IsNil)
	c.Assert(text, qt.Equals, `{"jsonrpc":"2.0","error":{"code":32011,"message":"no such port","data":null},"id":"2"}`)
}

func TestDecodeClassifies(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		call         bool
		notification bool
		response     bool
		key          string
	}{{
		name: "call",
		text: `{"jsonrpc":"2.0","method":"move_trader","params":{"sector_id":5},"id":"1"}`,
		call: true,
		key:  "1",
	}, {
		name: "call with numeric id",
		text: `{"jsonrpc":"2.0","method":"move_trader","params":[5],"id":17}`,
		call: true,
		key:  "17",
	}, {
		name:         "notification",
		text:         `{"jsonrpc":"2.0","method":"on_new_sector","params":{}}`,
		notification: true,
	}, {
		name:         "notification with null id",
		text:         `{"jsonrpc":"2.0","method":"on_new_sector","id":null}`,
		notification: true,
	}, {
		name:     "success",
		text:     `{"jsonrpc":"2.0","result":{"id":5},"id":"9"}`,
		response: true,
		key:      "9",
	}, {
		name:     "error",
		text:     `{"jsonrpc":"2.0","error":{"code":32010,"message":"x","data":null},"id":"10"}`,
		response: true,
		key:      "10",
	}}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			env, err := Decode(test.text)
			c.Assert(err, qt.IsNil)
			c.Check(env.IsCall(), qt.Equals, test.call)
			c.Check(env.IsNotification(), qt.Equals, test.notification)
			c.Check(env.IsResponse(), qt.Equals, test.response)
			c.Check(env.Key(), qt.Equals, test.key)
		})
	}
}

func TestNullIDHasEmptyKey(t *testing.T) {
	c := qt.New(t)

	env, err := Decode(`{"jsonrpc":"2.0","method":"on_x","id":null}`)
	c.Assert(err, qt.IsNil)
	c.Assert(env.HasID(), qt.IsFalse)
	c.Assert(env.Key(), qt.Equals, "")
	c.Assert(idKey(nil), qt.Equals, "")
	c.Assert(idKey(json.RawMessage(` null `)), qt.Equals, "")
	c.Assert(idKey(json.RawMessage(`"null"`)), qt.Equals, "null")
}

func TestDecodeMalformed(t *testing.T) {
	c := qt.New(t)

	env, err := Decode("not json")
	c.Assert(env, qt.IsNil)
	var de *DecodeError
	c.Assert(err, qt.ErrorAs, &de)
	c.Assert(de.What, qt.Equals, "envelope")

	for _, text := range []string{
		`{"jsonrpc":"1.0","method":"x","id":"1"}`,
		`{"jsonrpc":"2.0","id":"4"}`,
		`{"jsonrpc":"2.0","result":1,"error":{"code":1,"message":"m"},"id":"4"}`,
		`{"jsonrpc":"2.0","method":"x","result":1,"id":"4"}`,
		`{"jsonrpc":"2.0","method":"x","id":{"a":1}}`,
		`{"jsonrpc":"2.0"}`,
	} {
		env, err := Decode(text)
		c.Check(env, qt.Not(qt.IsNil), qt.Commentf(text))
		c.Check(err, qt.ErrorAs, &de, qt.Commentf(text))
	}
}

func TestValueRoundTrip(t *testing.T) {
	c := qt.New(t)

	label := "spare parts"
	in := crate{
		ID:     1,
		Label:  &label,
		Color:  green,
		Counts: map[color]int{red: 2, blue: 3},
		Inner:  []crate{{ID: 2, Color: blue, Counts: map[color]int{}}},
	}
	tree, err := EncodeValue(in)
	c.Assert(err, qt.IsNil)
	c.Assert(string(tree), qt.JSONEquals, map[string]any{
		"id":     1,
		"label":  "spare parts",
		"color":  "green",
		"counts": map[string]int{"red": 2, "blue": 3},
		"inner":  []any{map[string]any{"id": 2, "color": "blue", "counts": map[string]int{}}},
	})

	out, err := DecodeAs[crate](tree)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.DeepEquals, in)
}

func TestValueAbsentOptionalIsOmitted(t *testing.T) {
	c := qt.New(t)

	tree, err := EncodeValue(crate{ID: 7, Color: red})
	c.Assert(err, qt.IsNil)
	var fields map[string]json.RawMessage
	c.Assert(json.Unmarshal(tree, &fields), qt.IsNil)
	_, ok := fields["label"]
	c.Assert(ok, qt.IsFalse)

	out, err := DecodeAs[crate](tree)
	c.Assert(err, qt.IsNil)
	c.Assert(out.Label, qt.IsNil)
}

func TestValueEnumByName(t *testing.T) {
	c := qt.New(t)

	tree, err := EncodeValue(blue)
	c.Assert(err, qt.IsNil)
	c.Assert(string(tree), qt.Equals, `"blue"`)

	_, err = DecodeAs[color](json.RawMessage(`"purple"`))
	var de *DecodeError
	c.Assert(err, qt.ErrorAs, &de)

	_, err = DecodeAs[color](json.RawMessage(`2`))
	c.Assert(err, qt.ErrorAs, &de)

	c.Assert(colors.Names(), qt.DeepEquals, []string{"blue", "green", "red"})
}

func TestValueTuple(t *testing.T) {
	c := qt.New(t)

	in := NewTuple2(crate{ID: 1, Color: red, Counts: map[color]int{}}, green)
	tree, err := EncodeValue(in)
	c.Assert(err, qt.IsNil)
	c.Assert(string(tree), qt.Equals, `[{"id":1,"color":"red","counts":{}},"green"]`)

	out, err := DecodeAs[Tuple2[crate, color]](tree)
	c.Assert(err, qt.IsNil)
	c.Assert(out, qt.DeepEquals, in)
	first, second := out.Unpack()
	c.Assert(first.ID, qt.Equals, 1)
	c.Assert(second, qt.Equals, green)
}

func TestValueTupleArity(t *testing.T) {
	c := qt.New(t)

	var de *DecodeError
	for _, tree := range []string{`[1]`, `[1,2,3]`, `{"a":1}`, `[1,"x"]`} {
		_, err := DecodeAs[Tuple2[int, int]](json.RawMessage(tree))
		c.Check(err, qt.ErrorAs, &de, qt.Commentf(tree))
	}
}

func TestDecodeValueTypeMismatch(t *testing.T) {
	c := qt.New(t)

	_, err := DecodeAs[crate](json.RawMessage(`{"id":"seven"}`))
	var de *DecodeError
	c.Assert(err, qt.ErrorAs, &de)
	c.Assert(de.What, qt.Equals, "*rpc.crate")
}
