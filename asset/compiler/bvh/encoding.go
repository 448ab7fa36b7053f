package bvh

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// The size in bytes of an encoded FlatNode.
const FlatNodeSize = 32

// Write nodes as little-endian 32-byte records suitable for uploading to a
// GPU structured buffer.
func WriteFlatNodes(w io.Writer, nodes []FlatNode) error {
	return errors.Wrap(binary.Write(w, binary.LittleEndian, nodes), "bvh: could not encode nodes")
}

// Read count little-endian encoded nodes.
func ReadFlatNodes(r io.Reader, count int) ([]FlatNode, error) {
	nodes := make([]FlatNode, count)
	if err := binary.Read(r, binary.LittleEndian, nodes); err != nil {
		return nil, errors.Wrap(err, "bvh: could not decode nodes")
	}
	return nodes, nil
}

// Write a primitive ID list as little-endian int32 values.
func WriteIDs(w io.Writer, ids []int32) error {
	return errors.Wrap(binary.Write(w, binary.LittleEndian, ids), "bvh: could not encode primitive IDs")
}

// Read count little-endian int32 values.
func ReadIDs(r io.Reader, count int) ([]int32, error) {
	ids := make([]int32, count)
	if err := binary.Read(r, binary.LittleEndian, ids); err != nil {
		return nil, errors.Wrap(err, "bvh: could not decode primitive IDs")
	}
	return ids, nil
}
