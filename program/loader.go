package program

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/google/uuid"
)

// ErrBadImage is returned for any malformed IL image: wrong magic,
// unsupported major version, or a table offset/length that doesn't fall
// within the image. Loading a malformed image is non-fatal to the
// process (spec.md §4.5).
var ErrBadImage = errors.New("program: malformed IL image")

const headerLen = 36

const supportedMajor = 1

// buildIDNamespace is an arbitrary fixed namespace UUID used only to
// derive a stable, content-addressed BuildID via uuid.NewSHA1 — the same
// technique SnellerInc-sneller's ion/blockfmt package uses to assign
// stable identifiers to compacted blocks, narrowed here to a diagnostic
// label with no wire significance.
var buildIDNamespace = uuid.MustParse("6f9619ff-8b86-d011-b42d-00cf4fc964ff")

// Load validates and parses a compiled IL image into an immutable
// Program. It never mutates image; the returned Program does not alias
// it (all referenced regions are copied).
func Load(image []byte) (*Program, error) {
	if len(image) < headerLen {
		return nil, ErrBadImage
	}
	if string(image[0:4]) != string(magic[:]) {
		return nil, ErrBadImage
	}

	major := binary.LittleEndian.Uint16(image[4:6])
	minor := binary.LittleEndian.Uint16(image[6:8])
	if major != supportedMajor {
		return nil, ErrBadImage
	}
	flags := binary.LittleEndian.Uint32(image[8:12])

	keyTableOffset := binary.LittleEndian.Uint32(image[12:16])
	keyTableLen := binary.LittleEndian.Uint32(image[16:20])
	transformTableOffset := binary.LittleEndian.Uint32(image[20:24])
	transformTableLen := binary.LittleEndian.Uint32(image[24:28])
	codeOffset := binary.LittleEndian.Uint32(image[28:32])
	codeLen := binary.LittleEndian.Uint32(image[32:36])

	keyTable, err := sliceWithin(image, keyTableOffset, keyTableLen)
	if err != nil {
		return nil, err
	}
	transformTable, err := sliceWithin(image, transformTableOffset, transformTableLen)
	if err != nil {
		return nil, err
	}
	code, err := sliceWithin(image, codeOffset, codeLen)
	if err != nil {
		return nil, err
	}

	keys, err := parseKeyTable(image, keyTable)
	if err != nil {
		return nil, err
	}
	transforms, err := parseTransformTable(transformTable)
	if err != nil {
		return nil, err
	}

	codeCopy := make([]byte, len(code))
	copy(codeCopy, code)

	p := &Program{
		Major:      major,
		Minor:      minor,
		Flags:      flags,
		Keys:       keys,
		Transforms: transforms,
		Code:       codeCopy,
	}
	p.BuildID = uuid.NewSHA1(buildIDNamespace, image)

	return p, nil
}

func sliceWithin(image []byte, offset, length uint32) ([]byte, error) {
	end := uint64(offset) + uint64(length)
	if end > uint64(len(image)) {
		return nil, ErrBadImage
	}
	return image[offset:end], nil
}

const keyEntrySize = 5

func parseKeyTable(image, table []byte) ([]KeyEntry, error) {
	if len(table)%keyEntrySize != 0 {
		return nil, ErrBadImage
	}
	n := len(table) / keyEntrySize
	keys := make([]KeyEntry, 0, n)
	for i := 0; i < n; i++ {
		row := table[i*keyEntrySize:]
		id := binary.LittleEndian.Uint16(row[0:2])
		nameOffset := binary.LittleEndian.Uint16(row[2:4])
		typeTag := row[4]

		name := ""
		if nameOffset != 0xFFFF {
			s, err := readCString(image, int(nameOffset))
			if err != nil {
				return nil, err
			}
			name = s
		}
		keys = append(keys, KeyEntry{ID: id, Name: name, TypeTag: typeTag})
	}
	return keys, nil
}

func readCString(image []byte, offset int) (string, error) {
	if offset < 0 || offset > len(image) {
		return "", ErrBadImage
	}
	end := offset
	for end < len(image) && image[end] != 0 {
		end++
	}
	if end >= len(image) {
		return "", ErrBadImage
	}
	return string(image[offset:end]), nil
}

func parseTransformTable(table []byte) ([]Transform, error) {
	var transforms []Transform
	i := 0
	for i < len(table) {
		if i+2 > len(table) {
			return nil, ErrBadImage
		}
		kind := TransformKind(table[i])
		n := int(table[i+1])
		i += 2
		need := n * 8
		if i+need > len(table) {
			return nil, ErrBadImage
		}
		coeffs := make([]float64, n)
		for j := 0; j < n; j++ {
			bits := binary.LittleEndian.Uint64(table[i+j*8:])
			coeffs[j] = math.Float64frombits(bits)
		}
		i += need
		transforms = append(transforms, Transform{Kind: kind, Coeffs: coeffs})
	}
	return transforms, nil
}
