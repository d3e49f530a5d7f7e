/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package resp

import (
	"bytes"
	"testing"
)

func flatten(seq [][]byte) []byte {
	var buf bytes.Buffer
	for _, s := range seq {
		buf.Write(s)
	}
	return buf.Bytes()
}

func TestRequestEncodesSetCommand(t *testing.T) {
	r := NewRequest("SET", "bingo", "a", "b", "test")
	got := flatten(r.BufferSequence())
	want := []byte("*5\r\n$3\r\nSET\r\n$5\r\nbingo\r\n$1\r\na\r\n$1\r\nb\r\n$4\r\ntest\r\n")

	if !bytes.Equal(got, want) {
		t.Fatalf("encoded request = %q, want %q", got, want)
	}
}

func TestRequestRoundTripsThroughParser(t *testing.T) {
	r := NewRequest("SET", "bingo", "a", "b", "test")
	wire := flatten(r.BufferSequence())

	h := NewResponseHandler()
	// The encoded request is itself a valid RESP array: feeding it back
	// through the parser should reproduce the five bulk-string arguments.
	buf := h.Buffer()
	copy(buf, wire)
	if !h.DataReceived(len(wire)) {
		t.Fatalf("expected the encoded request to parse in one shot")
	}

	top, ok := h.Top()
	if !ok {
		t.Fatal("expected a completed reply")
	}
	if top.Kind() != Array || len(top.Elements()) != 5 {
		t.Fatalf("decoded = %s, want a 5-element array", top.Dump())
	}

	want := []string{"SET", "bingo", "a", "b", "test"}
	for i, w := range want {
		e, err := top.At(i)
		if err != nil {
			t.Fatal(err)
		}
		if e.Kind() != BulkString || e.String() != w {
			t.Fatalf("element %d = %s, want Bulkstring:%q", i, e.Dump(), w)
		}
	}
}

func TestPipelineCombinesRequests(t *testing.T) {
	p := NewPipeline()
	p.Add(NewRequest("PING")).Add(NewRequest("GET", "key"))

	if p.RequestCount() != 2 {
		t.Fatalf("RequestCount = %d, want 2", p.RequestCount())
	}

	got := flatten(p.BufferSequence())
	want := []byte("*1\r\n$4\r\nPING\r\n" + "*2\r\n$3\r\nGET\r\n$3\r\nkey\r\n")
	if !bytes.Equal(got, want) {
		t.Fatalf("pipeline wire = %q, want %q", got, want)
	}
}
