// Copyright 2023 AI Redefined Inc. <dev+cogment@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "stream")

// ElementSize is the size in bytes of a single serialized float
const ElementSize = 4

var byteOrder = binary.LittleEndian

// ErrUnexpectedEnd is returned when reading past the end of a stream
var ErrUnexpectedEnd = errors.New("unexpected end of stream")

// Writer is an append-only buffer of little-endian values
type Writer struct {
	buffer []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buffer: make([]byte, 0, capacity)}
}

func (w *Writer) Pos() int {
	return len(w.buffer)
}

func (w *Writer) Bytes() []byte {
	return w.buffer
}

func (w *Writer) WriteFloat32(value float32) {
	w.buffer = byteOrder.AppendUint32(w.buffer, math.Float32bits(value))
}

func (w *Writer) WriteFloat32s(values ...float32) {
	for _, value := range values {
		w.WriteFloat32(value)
	}
}

func (w *Writer) WriteUint32(value uint32) {
	w.buffer = byteOrder.AppendUint32(w.buffer, value)
}

func (w *Writer) WriteBool(value bool) {
	if value {
		w.buffer = append(w.buffer, 1)
	} else {
		w.buffer = append(w.buffer, 0)
	}
}

// Float32s decodes the whole content of the writer as floats.
//
// Trailing bytes not forming a complete float are ignored.
func (w *Writer) Float32s() []float32 {
	values := make([]float32, len(w.buffer)/ElementSize)
	for i := range values {
		values[i] = math.Float32frombits(byteOrder.Uint32(w.buffer[i*ElementSize:]))
	}
	return values
}

// Reader is a forward-only reader over a byte buffer
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// NewReaderFromFloat32s creates a reader over the serialization of the given values
func NewReaderFromFloat32s(values []float32) *Reader {
	w := NewWriter(len(values) * ElementSize)
	w.WriteFloat32s(values...)
	return NewReader(w.Bytes())
}

func (r *Reader) Pos() int {
	return r.pos
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) ReadFloat32() (float32, error) {
	value, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(value), nil
}

// ReadFloat32s reads n floats, nothing is consumed if less than n floats remain
func (r *Reader) ReadFloat32s(n int) ([]float32, error) {
	if r.Remaining() < n*ElementSize {
		return nil, fmt.Errorf("reading %d floats with %d bytes left: %w", n, r.Remaining(), ErrUnexpectedEnd)
	}
	values := make([]float32, n)
	for i := range values {
		values[i] = math.Float32frombits(byteOrder.Uint32(r.data[r.pos:]))
		r.pos += ElementSize
	}
	return values, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrUnexpectedEnd
	}
	value := byteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return value, nil
}

func (r *Reader) ReadBool() (bool, error) {
	if r.Remaining() < 1 {
		return false, ErrUnexpectedEnd
	}
	value := r.data[r.pos] != 0
	r.pos++
	return value, nil
}

// Skip moves the reader forward by n bytes, clamped to the end of the stream
func (r *Reader) Skip(n int) {
	r.pos += n
	if r.pos > len(r.data) {
		r.pos = len(r.data)
	}
}

type Positioned interface {
	Pos() int
}

// Guard checks that exactly the expected number of bytes is written to, or read from, a stream
// between its creation and the call to Check.
//
// Typical usage is `defer stream.NewGuard(writer, num*stream.ElementSize, "sensor").Check()`.
// A mismatch is reported in the logs, it never interrupts the serialization.
type Guard struct {
	stream        Positioned
	start         int
	expectedBytes int
	name          string
}

func NewGuard(stream Positioned, expectedBytes int, name string) *Guard {
	return &Guard{
		stream:        stream,
		start:         stream.Pos(),
		expectedBytes: expectedBytes,
		name:          name,
	}
}

// Check returns false, and logs an error, when the processed byte count doesn't match the expectation
func (g *Guard) Check() bool {
	processed := g.stream.Pos() - g.start
	if processed != g.expectedBytes {
		log.WithFields(logrus.Fields{
			"element":  g.name,
			"expected": g.expectedBytes,
			"actual":   processed,
		}).Error("space definition and serialized data size mismatch")
		return false
	}
	return true
}
