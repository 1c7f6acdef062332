package dem

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	gomath "math"
)

// TIFF tags the reader cares about.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagBitsPerSample       = 258
	tagCompression         = 259
	tagStripOffsets        = 273
	tagRowsPerStrip        = 278
	tagStripByteCounts     = 279
	tagSampleFormat        = 339
	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
)

const (
	compressionNone       = 1
	compressionDeflate    = 8
	compressionOldDeflate = 32946

	sampleFormatIEEEFloat = 3
)

// TIFF field types.
const (
	fieldShort  = 3
	fieldLong   = 4
	fieldDouble = 12
)

// Raster is a decoded elevation tile: height samples in row-major order
// plus the geo transform recovered from the tile's tags.
type Raster struct {
	Width     int
	Height    int
	Samples   []float32
	Transform Transform
}

type ifdEntry struct {
	fieldType uint16
	count     uint32
	// raw holds the 4 value/offset bytes of the entry.
	raw []byte
}

type tiffFile struct {
	data  []byte
	order binary.ByteOrder
	tags  map[uint16]ifdEntry
}

// Read decodes a single-IFD strip-organized GeoTIFF holding one height
// sample per pixel. Supported sample layouts are 32- and 64-bit IEEE
// floats, uncompressed or DEFLATE-compressed.
func Read(data []byte) (*Raster, error) {
	f, err := parseTIFF(data)
	if err != nil {
		return nil, err
	}

	transform, err := f.geoTransform()
	if err != nil {
		return nil, err
	}

	width, err := f.uintTag(tagImageWidth)
	if err != nil {
		return nil, err
	}
	height, err := f.uintTag(tagImageLength)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("degenerate raster %dx%d", width, height)
	}

	samples, err := f.readSamples(int(width), int(height))
	if err != nil {
		return nil, err
	}

	return &Raster{
		Width:     int(width),
		Height:    int(height),
		Samples:   samples,
		Transform: transform,
	}, nil
}

// ValueAt samples the height at a geographic coordinate, or reports false
// when the coordinate falls outside the raster.
func (r *Raster) ValueAt(longitude, latitude float32) (float32, bool) {
	x, y := r.Transform.ToRaster(longitude, latitude)
	col := int(x)
	row := int(y)
	if x < 0 || y < 0 || col >= r.Width || row >= r.Height {
		return 0, false
	}
	return r.Samples[row*r.Width+col], true
}

func parseTIFF(data []byte) (*tiffFile, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("truncated TIFF header: %d bytes", len(data))
	}

	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF file: bad byte order mark %q", data[:2])
	}

	magic := order.Uint16(data[2:4])
	if magic == 43 {
		return nil, fmt.Errorf("BigTIFF is not supported")
	}
	if magic != 42 {
		return nil, fmt.Errorf("not a TIFF file: magic %d", magic)
	}

	ifdOffset := order.Uint32(data[4:8])
	if int(ifdOffset)+2 > len(data) {
		return nil, fmt.Errorf("IFD offset %d out of bounds", ifdOffset)
	}

	count := order.Uint16(data[ifdOffset : ifdOffset+2])
	tags := make(map[uint16]ifdEntry, count)
	pos := int(ifdOffset) + 2
	for i := 0; i < int(count); i++ {
		if pos+12 > len(data) {
			return nil, fmt.Errorf("truncated IFD entry %d", i)
		}
		tag := order.Uint16(data[pos : pos+2])
		tags[tag] = ifdEntry{
			fieldType: order.Uint16(data[pos+2 : pos+4]),
			count:     order.Uint32(data[pos+4 : pos+8]),
			raw:       data[pos+8 : pos+12],
		}
		pos += 12
	}

	return &tiffFile{data: data, order: order, tags: tags}, nil
}

func (f *tiffFile) geoTransform() (Transform, error) {
	pixelScale, err := f.doubleValues(tagModelPixelScale)
	if err != nil {
		return Transform{}, err
	}
	tiePoints, err := f.doubleValues(tagModelTiepoint)
	if err != nil {
		return Transform{}, err
	}
	modelTransformation, err := f.doubleValues(tagModelTransformation)
	if err != nil {
		return Transform{}, err
	}
	return TransformFromTags(pixelScale, tiePoints, modelTransformation)
}

// value returns the payload bytes of an entry, following the offset
// indirection when the value does not fit inline.
func (f *tiffFile) value(e ifdEntry) ([]byte, error) {
	size := fieldSize(e.fieldType) * int(e.count)
	if size <= 4 {
		return e.raw[:size], nil
	}
	offset := int(f.order.Uint32(e.raw))
	if offset+size > len(f.data) {
		return nil, fmt.Errorf("tag value at %d overruns file", offset)
	}
	return f.data[offset : offset+size], nil
}

func fieldSize(fieldType uint16) int {
	switch fieldType {
	case fieldShort:
		return 2
	case fieldLong:
		return 4
	case fieldDouble:
		return 8
	default:
		return 1
	}
}

// uintTag reads a single SHORT or LONG tag value.
func (f *tiffFile) uintTag(tag uint16) (uint32, error) {
	values, err := f.uintValues(tag)
	if err != nil {
		return 0, err
	}
	if len(values) == 0 {
		return 0, fmt.Errorf("missing tag %d", tag)
	}
	return values[0], nil
}

// uintValues reads a SHORT or LONG array tag, or nil when absent.
func (f *tiffFile) uintValues(tag uint16) ([]uint32, error) {
	e, ok := f.tags[tag]
	if !ok {
		return nil, nil
	}
	raw, err := f.value(e)
	if err != nil {
		return nil, err
	}
	values := make([]uint32, e.count)
	switch e.fieldType {
	case fieldShort:
		for i := range values {
			values[i] = uint32(f.order.Uint16(raw[i*2:]))
		}
	case fieldLong:
		for i := range values {
			values[i] = f.order.Uint32(raw[i*4:])
		}
	default:
		return nil, fmt.Errorf("tag %d: unexpected field type %d", tag, e.fieldType)
	}
	return values, nil
}

// doubleValues reads a DOUBLE array tag, or nil when absent.
func (f *tiffFile) doubleValues(tag uint16) ([]float64, error) {
	e, ok := f.tags[tag]
	if !ok {
		return nil, nil
	}
	if e.fieldType != fieldDouble {
		return nil, fmt.Errorf("tag %d: unexpected field type %d", tag, e.fieldType)
	}
	raw, err := f.value(e)
	if err != nil {
		return nil, err
	}
	values := make([]float64, e.count)
	for i := range values {
		values[i] = gomath.Float64frombits(f.order.Uint64(raw[i*8:]))
	}
	return values, nil
}

func (f *tiffFile) readSamples(width, height int) ([]float32, error) {
	bitsPerSample, err := f.uintTag(tagBitsPerSample)
	if err != nil {
		return nil, err
	}
	if format, ferr := f.uintTag(tagSampleFormat); ferr == nil && format != sampleFormatIEEEFloat {
		return nil, fmt.Errorf("unsupported sample format %d", format)
	}

	compression := uint32(compressionNone)
	if c, cerr := f.uintTag(tagCompression); cerr == nil {
		compression = c
	}

	offsets, err := f.uintValues(tagStripOffsets)
	if err != nil {
		return nil, err
	}
	if offsets == nil {
		return nil, fmt.Errorf("missing strip offsets: tiled layout is not supported")
	}
	byteCounts, err := f.uintValues(tagStripByteCounts)
	if err != nil {
		return nil, err
	}
	if len(byteCounts) != len(offsets) {
		return nil, fmt.Errorf("strip offsets/byte counts mismatch: %d vs %d", len(offsets), len(byteCounts))
	}

	raw := make([]byte, 0, width*height*int(bitsPerSample)/8)
	for i, offset := range offsets {
		if int(offset)+int(byteCounts[i]) > len(f.data) {
			return nil, fmt.Errorf("strip %d overruns file", i)
		}
		strip := f.data[offset : offset+byteCounts[i]]
		switch compression {
		case compressionNone:
		case compressionDeflate, compressionOldDeflate:
			strip, err = inflate(strip)
			if err != nil {
				return nil, fmt.Errorf("strip %d: %w", i, err)
			}
		default:
			return nil, fmt.Errorf("unsupported compression %d", compression)
		}
		raw = append(raw, strip...)
	}

	total := width * height
	samples := make([]float32, total)
	switch bitsPerSample {
	case 32:
		if len(raw) < total*4 {
			return nil, fmt.Errorf("sample data too short: %d bytes for %d samples", len(raw), total)
		}
		for i := range samples {
			samples[i] = gomath.Float32frombits(f.order.Uint32(raw[i*4:]))
		}
	case 64:
		if len(raw) < total*8 {
			return nil, fmt.Errorf("sample data too short: %d bytes for %d samples", len(raw), total)
		}
		for i := range samples {
			samples[i] = float32(gomath.Float64frombits(f.order.Uint64(raw[i*8:])))
		}
	default:
		return nil, fmt.Errorf("unsupported bits per sample %d", bitsPerSample)
	}
	return samples, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening deflate strip: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflating strip: %w", err)
	}
	return out, nil
}
