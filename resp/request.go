/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package resp

import "strconv"

// Request encodes a single command as a RESP array of bulk strings, ready
// to hand to a vectored write (net.Buffers or writev). BufferSequence never
// copies the argument bytes: it returns spans that point directly at the
// Request's argument buffers and at a small set of header/separator buffers
// owned by the Request. NewRequest copies each argument string into its own
// []byte once; NewRequestBytes uses the caller's slices as they are.
type Request struct {
	args    [][]byte
	header  []byte
	crlf    []byte
	lengths [][]byte
	built   bool
	seq     [][]byte
}

// NewRequest builds a Request from a command and its arguments, e.g.
// NewRequest("SET", "key", "value").
func NewRequest(args ...string) *Request {
	r := &Request{crlf: []byte("\r\n")}
	r.args = make([][]byte, len(args))
	for i, a := range args {
		r.args[i] = []byte(a)
	}
	return r
}

// NewRequestBytes is the byte-slice equivalent of NewRequest, for callers
// that already hold the argument bytes and want to avoid a string copy.
func NewRequestBytes(args ...[]byte) *Request {
	r := &Request{crlf: []byte("\r\n")}
	r.args = args
	return r
}

// BufferSequence returns the ordered byte spans making up the request's
// wire form: "*<argc>\r\n" followed by "$<len>\r\n<arg>\r\n" per argument.
// The header is computed lazily and cached; it only needs to be recomputed
// if the Request were mutated after a prior call, which this type does not
// allow once built.
func (r *Request) BufferSequence() [][]byte {
	if r.built {
		return r.seq
	}

	r.header = []byte("*" + strconv.Itoa(len(r.args)) + "\r\n")
	r.lengths = make([][]byte, len(r.args))
	r.seq = make([][]byte, 0, 1+len(r.args)*3)
	r.seq = append(r.seq, r.header)
	for i, a := range r.args {
		r.lengths[i] = []byte("$" + strconv.Itoa(len(a)) + "\r\n")
		r.seq = append(r.seq, r.lengths[i], a, r.crlf)
	}
	r.built = true
	return r.seq
}

// Pipeline batches several Requests into one vectored write, so a caller can
// issue N commands with a single syscall and then drain N replies.
type Pipeline struct {
	requests [][][]byte
	seq      [][]byte
}

// NewPipeline returns an empty Pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Add appends a Request to the pipeline, folding its buffer sequence into
// the pipeline's combined sequence.
func (p *Pipeline) Add(r *Request) *Pipeline {
	seq := r.BufferSequence()
	p.requests = append(p.requests, seq)
	p.seq = append(p.seq, seq...)
	return p
}

// BufferSequence returns the combined, ordered byte spans for every request
// added so far, suitable for a single vectored write.
func (p *Pipeline) BufferSequence() [][]byte {
	return p.seq
}

// RequestCount is how many replies a transmit of this pipeline must collect.
func (p *Pipeline) RequestCount() int {
	return len(p.requests)
}
