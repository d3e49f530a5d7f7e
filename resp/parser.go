/**
 * Copyright (c) 2022, Xerra Earth Observation Institute
 * See LICENSE.TXT in the root directory of this source tree.
 */

package resp

import "strconv"

// DefaultBufferSize is the capacity of the first buffer a ResponseHandler
// allocates, and the floor size for every buffer it allocates afterwards.
const DefaultBufferSize = 1024

// frame tracks an in-progress Array: how many elements it still expects and
// the elements collected so far.
type frame struct {
	expected int
	children []Response
}

// ResponseHandler is a single-pass, resumable RESP decoder. Callers drive it
// with Buffer/DataReceived in a read loop:
//
//	for !h.DataReceived(readInto(h.Buffer())) {
//	}
//	reply, _ := h.Top()
//
// DataReceived never blocks and never requires the caller to present a
// message in one piece: it is insensitive to how the input is chunked and to
// how large the caller's read buffer is. A reply spanning more bytes than the
// current buffer holds triggers a buffer growth that preserves the
// in-progress bytes; it never loses data already received.
//
// Response values returned from Top borrow byte slices from the handler's
// internal buffers. They remain valid until the next call to DataReceived,
// Commit, or Reset on the same handler; callers that need to retain a reply
// past that point must copy it.
type ResponseHandler struct {
	initialBufferSize int
	bufferSize        int

	bufs   [][]byte
	filled []int
	cur    int

	cursor    int
	lineStart int
	crSeen    bool

	pendingBulk      bool
	pendingBulkStart int
	pendingBulkNeed  int

	stack       []frame
	top         Response
	have        bool
	protocolErr bool
	growths     int
}

// NewResponseHandler allocates a handler with the default initial buffer size.
func NewResponseHandler() *ResponseHandler {
	return NewResponseHandlerSize(DefaultBufferSize)
}

// NewResponseHandlerSize allocates a handler whose first (and minimum)
// buffer size is bufferSize.
func NewResponseHandlerSize(bufferSize int) *ResponseHandler {
	h := &ResponseHandler{initialBufferSize: bufferSize}
	h.Reset()
	return h
}

// Buffer returns the region callers should read socket bytes into next. It
// grows the handler's storage when the current buffer has no room left,
// preserving whatever bytes are still needed to finish the reply in
// progress.
func (h *ResponseHandler) Buffer() []byte {
	cb := h.bufs[h.cur]
	if h.filled[h.cur] < len(cb) {
		return cb[h.filled[h.cur]:]
	}

	if !h.pendingBulk && h.lineStart == h.filled[h.cur] {
		h.newBuffer(h.bufferSize)
		return h.bufs[h.cur][h.filled[h.cur]:]
	}

	preserveFrom := h.lineStart
	if h.pendingBulk && h.pendingBulkStart < preserveFrom {
		preserveFrom = h.pendingBulkStart
	}
	h.growPreserving(preserveFrom, len(cb)+1)
	return h.bufs[h.cur][h.filled[h.cur]:]
}

func (h *ResponseHandler) newBuffer(size int) {
	h.bufs = append(h.bufs, make([]byte, size))
	h.filled = append(h.filled, 0)
	h.cur = len(h.bufs) - 1
	h.cursor = 0
	h.lineStart = 0
}

// growPreserving replaces the current buffer with a bigger one, carrying
// forward the bytes from preserveFrom onward (the start of the in-progress
// line or bulk string payload), the way the original parser's buffer chain
// never discards bytes a pending reply still needs.
func (h *ResponseHandler) growPreserving(preserveFrom, needAtLeast int) {
	old := h.bufs[h.cur]
	oldFilled := h.filled[h.cur]

	newSize := len(old) * 2
	if newSize < needAtLeast {
		newSize = needAtLeast
	}
	if newSize < h.bufferSize {
		newSize = h.bufferSize
	}

	next := make([]byte, newSize)
	copied := copy(next, old[preserveFrom:oldFilled])

	h.bufs = append(h.bufs, next)
	h.filled = append(h.filled, copied)
	h.cur = len(h.bufs) - 1
	h.bufferSize = newSize
	h.growths++

	h.cursor -= preserveFrom
	h.lineStart -= preserveFrom
	if h.pendingBulk {
		h.pendingBulkStart -= preserveFrom
	}
}

// DataReceived tells the handler that n more bytes, previously written into
// the slice returned by Buffer, are now valid. It reports whether a
// complete top-level reply is available via Top.
func (h *ResponseHandler) DataReceived(n int) bool {
	if n > 0 {
		h.filled[h.cur] += n
	}

	for {
		if h.pendingBulk {
			have := h.filled[h.cur] - h.pendingBulkStart
			if have < h.pendingBulkNeed {
				return false
			}
			data := h.bufs[h.cur][h.pendingBulkStart : h.pendingBulkStart+h.pendingBulkNeed-2]
			h.cursor = h.pendingBulkStart + h.pendingBulkNeed
			h.lineStart = h.cursor
			h.pendingBulk = false
			if h.bubble(newSimple(BulkString, data)) {
				return true
			}
			continue
		}

		for h.cursor < h.filled[h.cur] {
			b := h.bufs[h.cur][h.cursor]
			h.cursor++

			if h.crSeen {
				h.crSeen = false
				if b != '\n' {
					if b == '\r' {
						h.crSeen = true
					}
					continue
				}

				line := h.bufs[h.cur][h.lineStart : h.cursor-2]
				h.lineStart = h.cursor
				if len(line) == 0 {
					continue
				}

				finished, pendingSet := h.handleLine(line)
				if pendingSet {
					break
				}
				if finished {
					return true
				}
				continue
			}

			if b == '\r' {
				h.crSeen = true
			}
		}

		if h.pendingBulk {
			continue
		}
		return false
	}
}

// handleLine interprets one CRLF-terminated line as the head of a RESP
// value and either completes a scalar reply, opens a pending bulk-string
// wait, or pushes a new array frame. It reports whether a reply finished
// (bubbled all the way to the top level) and whether a bulk-string wait is
// now pending (in which case the caller must stop scanning for CRLFs, since
// the payload bytes are not line-structured).
func (h *ResponseHandler) handleLine(line []byte) (finished, pendingSet bool) {
	switch line[0] {
	case '+':
		return h.bubble(newSimple(SimpleString, line[1:])), false
	case '-':
		return h.bubble(newSimple(Error, line[1:])), false
	case ':':
		return h.bubble(newSimple(Integer, line[1:])), false
	case '$':
		count, ok := parseLength(line[1:])
		if !ok {
			return h.abort("invalid bulk length"), false
		}
		if count == -1 {
			return h.bubble(NewNull()), false
		}

		start := h.cursor
		need := int(count) + 2
		have := h.filled[h.cur] - start
		if have >= need {
			data := h.bufs[h.cur][start : start+int(count)]
			h.cursor = start + need
			h.lineStart = h.cursor
			return h.bubble(newSimple(BulkString, data)), false
		}

		h.pendingBulk = true
		h.pendingBulkStart = start
		h.pendingBulkNeed = need
		return false, true
	case '*':
		count, ok := parseLength(line[1:])
		if !ok {
			return h.abort("invalid array length"), false
		}
		if count == -1 {
			return h.bubble(NewNull()), false
		}
		if count == 0 {
			return h.bubble(NewArray([]Response{})), false
		}
		h.stack = append(h.stack, frame{expected: int(count), children: make([]Response, 0, count)})
		return false, false
	default:
		return h.abort("unknown reply type " + string(line[0])), false
	}
}

// abort reports a malformed leading byte or length field. Unlike a genuine
// server Error reply, this is the parser's own refusal to keep decoding the
// stream: it discards whatever array frames were in progress (they can no
// longer be trusted to resync) and marks the completed "reply" as a protocol
// violation via ProtocolError, so callers don't mistake it for a real -ERR.
func (h *ResponseHandler) abort(reason string) bool {
	h.stack = nil
	h.top = newSimple(Error, []byte("protocol error: "+reason))
	h.have = true
	h.protocolErr = true
	return true
}

// bubble folds a just-completed part into its parent array frame, repeating
// for every frame that part happens to complete, until either an
// incomplete frame is left awaiting more elements (returns false) or the
// part reaches the top level (returns true, and Top becomes valid).
func (h *ResponseHandler) bubble(part Response) bool {
	for {
		if len(h.stack) == 0 {
			h.top = part
			h.have = true
			return true
		}
		f := &h.stack[len(h.stack)-1]
		f.children = append(f.children, part)
		if len(f.children) < f.expected {
			return false
		}
		h.stack = h.stack[:len(h.stack)-1]
		part = NewArray(f.children)
	}
}

func parseLength(b []byte) (int64, bool) {
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Top returns the most recently completed top-level reply, if any.
func (h *ResponseHandler) Top() (Response, bool) {
	return h.top, h.have
}

// ProtocolError reports whether the reply currently held by Top is not a
// genuine server reply but the parser's own refusal to decode a malformed
// leading byte or length field. Callers (Connection) must check this before
// treating an Error-kind Top as a promotable server error: the two look
// identical at the Response level but call for different error codes
// (protocol_error vs server_error) and different recovery (close the
// connection vs just report the message).
func (h *ResponseHandler) ProtocolError() bool {
	return h.protocolErr
}

// BufferGrowths is how many times this handler has had to allocate a bigger
// buffer to accommodate a reply that didn't fit, since the last Reset.
func (h *ResponseHandler) BufferGrowths() int {
	return h.growths
}

// Commit clears the completed reply so the handler can start the next one.
// With keepBuffer false, it also drops every buffer but the current one --
// the usual case between independent, non-pipelined commands. With
// keepBuffer true, it instead tries to complete another reply immediately
// from bytes already buffered, which is how pipelined replies are drained
// without an extra socket read per reply; it reports whether one was found.
func (h *ResponseHandler) Commit(keepBuffer bool) bool {
	if !h.have {
		return false
	}
	h.have = false
	h.top = Response{}
	h.protocolErr = false

	if !keepBuffer {
		if len(h.bufs) > 1 {
			last := h.bufs[len(h.bufs)-1]
			lastFilled := h.filled[len(h.filled)-1]
			h.bufs = [][]byte{last}
			h.filled = []int{lastFilled}
			h.cur = 0
		}
		return false
	}

	return h.DataReceived(0)
}

// Reset discards all buffered state, returning the handler to the condition
// NewResponseHandler left it in.
func (h *ResponseHandler) Reset() {
	h.bufs = [][]byte{make([]byte, h.initialBufferSize)}
	h.filled = []int{0}
	h.cur = 0
	h.cursor = 0
	h.lineStart = 0
	h.crSeen = false
	h.pendingBulk = false
	h.pendingBulkStart = 0
	h.pendingBulkNeed = 0
	h.stack = nil
	h.top = Response{}
	h.have = false
	h.protocolErr = false
	h.growths = 0
	h.bufferSize = h.initialBufferSize
}
