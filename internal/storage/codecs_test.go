/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 * Licensed under the Apache License, Version 2.0
 */

package storage

import (
	"encoding/binary"
	"errors"
	"path/filepath"
	"testing"
)

// metric is a fixed-width test record. Its encoding is 24 bytes; the
// codec declares a 32-byte stride, so every slot carries 8 pad bytes.
type metric struct {
	Series uint64
	At     uint64
	Value  uint64
}

type metricCodec struct{}

func (metricCodec) Encode(m metric) ([]byte, error) {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint64(buf[0:8], m.Series)
	binary.LittleEndian.PutUint64(buf[8:16], m.At)
	binary.LittleEndian.PutUint64(buf[16:24], m.Value)
	return buf, nil
}

func (metricCodec) Decode(data []byte) (metric, error) {
	if len(data) < 24 {
		return metric{}, errors.New("metric: truncated record")
	}
	return metric{
		Series: binary.LittleEndian.Uint64(data[0:8]),
		At:     binary.LittleEndian.Uint64(data[8:16]),
		Value:  binary.LittleEndian.Uint64(data[16:24]),
	}, nil
}

func (metricCodec) Stride() int { return 32 }

// event is a variable-width test record.
type event struct {
	ID   uint64
	Name string
}

type eventCodec struct{}

func (eventCodec) Encode(e event) ([]byte, error) {
	buf := make([]byte, 8+len(e.Name))
	binary.LittleEndian.PutUint64(buf[0:8], e.ID)
	copy(buf[8:], e.Name)
	return buf, nil
}

func (eventCodec) Decode(data []byte) (event, error) {
	if len(data) < 8 {
		return event{}, errors.New("event: truncated record")
	}
	return event{
		ID:   binary.LittleEndian.Uint64(data[0:8]),
		Name: string(data[8:]),
	}, nil
}

// rawCodec passes record bytes through unchanged. Tests use it when the
// exact encoded length matters.
type rawCodec struct{}

func (rawCodec) Encode(b []byte) ([]byte, error) { return b, nil }
func (rawCodec) Decode(b []byte) ([]byte, error) {
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

// oversizedCodec always encodes past its declared stride.
type oversizedCodec struct{}

func (oversizedCodec) Encode(m metric) ([]byte, error) { return make([]byte, 64), nil }
func (oversizedCodec) Decode(data []byte) (metric, error) {
	return metric{}, nil
}
func (oversizedCodec) Stride() int { return 32 }

// tempPath returns a scratch file path inside the test's temp dir.
func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

// Engine interface conformance.
var (
	_ Engine[metric] = (*StaticEngine[metric])(nil)
	_ Engine[event]  = (*DynamicEngine[event])(nil)
)
