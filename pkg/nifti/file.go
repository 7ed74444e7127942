package nifti

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
)

// NIfTI-1 datatype codes for the subset of types we read.
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtFloat64 = 64
)

// header is the fixed 348-byte NIfTI-1 header, field for field.
// Layout follows the reference nifti1.h; binary.Read/Write treat it
// as packed little-endian.
type header struct {
	SizeofHdr    int32
	DataTypeStr  [10]byte
	DBName       [18]byte
	Extents      int32
	SessionError int16
	Regular      byte
	DimInfo      byte

	Dim      [8]int16
	IntentP1 float32
	IntentP2 float32
	IntentP3 float32

	IntentCode int16
	Datatype   int16
	Bitpix     int16
	SliceStart int16

	Pixdim    [8]float32
	VoxOffset float32
	SclSlope  float32
	SclInter  float32

	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32

	Descrip [80]byte
	AuxFile [24]byte

	QformCode int16
	SformCode int16

	QuaternB float32
	QuaternC float32
	QuaternD float32
	QoffsetX float32
	QoffsetY float32
	QoffsetZ float32

	SrowX [4]float32
	SrowY [4]float32
	SrowZ [4]float32

	IntentName [16]byte
	Magic      [4]byte
}

const (
	headerSize = 348
	dataOffset = 352
)

// Load reads a NIfTI-1 image from a .nii or .nii.gz file. The voxel
// payload is converted to float64 and scl_slope/scl_inter scaling is
// applied. The affine is taken from the sform when present, otherwise
// a diagonal affine is built from pixdim.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	img, err := Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return img, nil
}

// Decode reads a NIfTI-1 image from a stream.
func Decode(r io.Reader) (*Image, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if h.SizeofHdr != headerSize {
		return nil, fmt.Errorf("bad header size %d, want %d", h.SizeofHdr, headerSize)
	}
	if magic := string(h.Magic[:3]); magic != "n+1" {
		return nil, fmt.Errorf("unsupported magic %q, only single-file NIfTI-1 is supported", magic)
	}

	ndim := int(h.Dim[0])
	if ndim < 3 || ndim > 7 {
		return nil, fmt.Errorf("unsupported number of dimensions %d", ndim)
	}
	shape := make([]int, ndim)
	n := 1
	for i := 0; i < ndim; i++ {
		shape[i] = int(h.Dim[i+1])
		if shape[i] <= 0 {
			return nil, fmt.Errorf("non-positive dimension %d in header", shape[i])
		}
		n *= shape[i]
	}

	// Skip from the end of the header to the voxel data.
	skip := int64(h.VoxOffset) - headerSize
	if h.VoxOffset == 0 {
		skip = dataOffset - headerSize
	}
	if skip < 0 {
		return nil, fmt.Errorf("invalid vox_offset %v", h.VoxOffset)
	}
	if _, err := io.CopyN(io.Discard, r, skip); err != nil {
		return nil, fmt.Errorf("failed to seek to voxel data: %w", err)
	}

	data, err := readVoxels(r, h.Datatype, n)
	if err != nil {
		return nil, err
	}

	// Apply intensity scaling when the header carries a real slope.
	slope := float64(h.SclSlope)
	inter := float64(h.SclInter)
	if slope != 0 && (slope != 1 || inter != 0) {
		for i := range data {
			data[i] = data[i]*slope + inter
		}
	}

	img := &Image{
		Shape:  shape,
		Affine: affineFromHeader(&h),
		Data:   data,
	}
	if err := img.validate(); err != nil {
		return nil, err
	}
	return img, nil
}

func readVoxels(r io.Reader, datatype int16, n int) ([]float64, error) {
	size := 0
	switch datatype {
	case dtUint8:
		size = 1
	case dtInt16:
		size = 2
	case dtInt32, dtFloat32:
		size = 4
	case dtFloat64:
		size = 8
	default:
		return nil, fmt.Errorf("unsupported datatype code %d", datatype)
	}

	raw := make([]byte, n*size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("failed to read voxel data: %w", err)
	}

	data := make([]float64, n)
	switch datatype {
	case dtUint8:
		for i := 0; i < n; i++ {
			data[i] = float64(raw[i])
		}
	case dtInt16:
		for i := 0; i < n; i++ {
			data[i] = float64(int16(binary.LittleEndian.Uint16(raw[i*2:])))
		}
	case dtInt32:
		for i := 0; i < n; i++ {
			data[i] = float64(int32(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case dtFloat32:
		for i := 0; i < n; i++ {
			data[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:])))
		}
	case dtFloat64:
		for i := 0; i < n; i++ {
			data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	}
	return data, nil
}

func affineFromHeader(h *header) Affine {
	if h.SformCode > 0 {
		var a Affine
		for j := 0; j < 4; j++ {
			a[0][j] = float64(h.SrowX[j])
			a[1][j] = float64(h.SrowY[j])
			a[2][j] = float64(h.SrowZ[j])
		}
		a[3][3] = 1
		return a
	}
	// Fall back to a scaling affine from pixdim.
	px, py, pz := float64(h.Pixdim[1]), float64(h.Pixdim[2]), float64(h.Pixdim[3])
	if px == 0 {
		px = 1
	}
	if py == 0 {
		py = 1
	}
	if pz == 0 {
		pz = 1
	}
	return Diag(px, py, pz)
}

// Save writes an image as a single-file NIfTI-1 volume. The voxel data
// is written as float64 so a Load round trip is lossless; .gz paths are
// gzip compressed.
func Save(path string, img *Image) error {
	if err := img.validate(); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if err := Encode(w, img); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			os.Remove(path)
			return fmt.Errorf("failed to flush %s: %w", path, err)
		}
	}
	return nil
}

// Encode writes an image as NIfTI-1 to a stream.
func Encode(w io.Writer, img *Image) error {
	var h header
	h.SizeofHdr = headerSize
	h.Regular = 'r'

	h.Dim[0] = int16(len(img.Shape))
	for i := range h.Dim[1:] {
		h.Dim[i+1] = 1
	}
	for i, s := range img.Shape {
		h.Dim[i+1] = int16(s)
	}

	h.Datatype = dtFloat64
	h.Bitpix = 64
	h.VoxOffset = dataOffset
	h.SclSlope = 1
	h.XyztUnits = 2 | 8 // mm and seconds

	sizes := img.Affine.VoxelSizes()
	h.Pixdim[0] = 1
	h.Pixdim[1] = float32(sizes[0])
	h.Pixdim[2] = float32(sizes[1])
	h.Pixdim[3] = float32(sizes[2])

	h.SformCode = 1
	for j := 0; j < 4; j++ {
		h.SrowX[j] = float32(img.Affine[0][j])
		h.SrowY[j] = float32(img.Affine[1][j])
		h.SrowZ[j] = float32(img.Affine[2][j])
	}
	copy(h.Magic[:], "n+1\x00")

	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	// Four zero bytes: no header extensions.
	if _, err := w.Write(make([]byte, dataOffset-headerSize)); err != nil {
		return fmt.Errorf("failed to write extension flag: %w", err)
	}

	raw := make([]byte, len(img.Data)*8)
	for i, v := range img.Data {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(v))
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("failed to write voxel data: %w", err)
	}
	return nil
}
