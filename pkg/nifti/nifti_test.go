package nifti

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAffineBasics(t *testing.T) {
	eye := Eye()
	x, y, z := eye.Apply(3, 4, 5)
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 4.0, y)
	assert.Equal(t, 5.0, z)

	d := Diag(1, 2, 3)
	x, y, z = d.Apply(2, 2, 2)
	assert.Equal(t, 2.0, x)
	assert.Equal(t, 4.0, y)
	assert.Equal(t, 6.0, z)

	sizes := d.VoxelSizes()
	assert.Equal(t, [3]float64{1, 2, 3}, sizes)
}

func TestAffineInverse(t *testing.T) {
	a := Diag(2, 2, 2)
	a[0][3] = 5 // translation

	inv, err := a.Inverse()
	require.NoError(t, err)

	// a * inv is the identity.
	prod := a.Mul(inv)
	assert.True(t, prod.AlmostEqual(Eye(), 1e-12))

	// Round-trip a point.
	x, y, z := a.Apply(1, 2, 3)
	i, j, k := inv.Apply(x, y, z)
	assert.InDelta(t, 1.0, i, 1e-12)
	assert.InDelta(t, 2.0, j, 1e-12)
	assert.InDelta(t, 3.0, k, 1e-12)
}

func TestAffineInverseSingular(t *testing.T) {
	var degenerate Affine // all zeros
	_, err := degenerate.Inverse()
	require.Error(t, err)
}

func TestAffineEquality(t *testing.T) {
	a := Diag(1, 2, 3)
	b := a
	assert.True(t, a.Equal(b))

	b[2][2] += 1e-9
	assert.False(t, a.Equal(b))
	assert.True(t, a.AlmostEqual(b, 1e-6))
	assert.False(t, a.AlmostEqual(b, 1e-12))
}

func TestImageIndexing(t *testing.T) {
	img := NewImage([]int{2, 3, 4, 5}, Eye())
	assert.Equal(t, 4, img.NDim())
	assert.Equal(t, [3]int{2, 3, 4}, img.SpatialShape())
	assert.Equal(t, 24, img.NumVoxels())
	assert.Equal(t, 5, img.NFrames())
	assert.Len(t, img.Data, 2*3*4*5)

	img.Set(1, 2, 3, 4, 7.5)
	assert.Equal(t, 7.5, img.At(1, 2, 3, 4))

	// Frame is a contiguous view.
	frame := img.Frame(4)
	assert.Len(t, frame, 24)
	assert.Equal(t, 7.5, frame[1+2*(2+3*3)])
}

func TestImageClone(t *testing.T) {
	img := NewImage([]int{2, 2, 2}, Diag(2, 2, 2))
	img.Set(0, 0, 0, 0, 1)

	c := img.Clone()
	c.Set(0, 0, 0, 0, 9)
	assert.Equal(t, 1.0, img.At(0, 0, 0, 0))
	assert.Equal(t, 9.0, c.At(0, 0, 0, 0))
	assert.True(t, c.Affine.Equal(img.Affine))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	affine := Diag(2, 2, 2)
	affine[0][3] = -10

	for _, name := range []string{"img.nii", "img.nii.gz"} {
		t.Run(name, func(t *testing.T) {
			img := NewImage([]int{4, 5, 6, 3}, affine)
			for i := range img.Data {
				img.Data[i] = rng.Float64()
			}

			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, Save(path, img))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, img.Shape, loaded.Shape)
			// The affine passes through float32 header fields.
			assert.True(t, loaded.Affine.AlmostEqual(img.Affine, 1e-5))
			// Voxels are stored as float64 and survive exactly.
			assert.Equal(t, img.Data, loaded.Data)
		})
	}
}

func TestSaveLoad3D(t *testing.T) {
	img := NewImage([]int{3, 4, 5}, Eye())
	img.Set(1, 1, 1, 0, 1)

	path := filepath.Join(t.TempDir(), "mask.nii.gz")
	require.NoError(t, Save(path, img))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.NDim())
	assert.Equal(t, 1.0, loaded.At(1, 1, 1, 0))
}

func TestDecodeScaledIntensities(t *testing.T) {
	// Scanner-written files store integer voxels with an intensity
	// scaling in the header; our encoder never emits those, so build
	// the stream by hand.
	var h header
	h.SizeofHdr = headerSize
	h.Dim = [8]int16{3, 2, 2, 2, 1, 1, 1, 1}
	h.Datatype = dtInt16
	h.Bitpix = 16
	h.VoxOffset = dataOffset
	h.SclSlope = 2.5
	h.SclInter = -1
	h.Pixdim = [8]float32{1, 1, 1, 1, 0, 0, 0, 0}
	copy(h.Magic[:], "n+1\x00")

	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, &h))
	buf.Write(make([]byte, dataOffset-headerSize))
	for v := int16(0); v < 8; v++ {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}

	img, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, img.Shape)
	// No sform: the affine falls back to pixdim scaling.
	assert.True(t, img.Affine.AlmostEqual(Eye(), 1e-9))
	for i, v := range img.Data {
		assert.InDelta(t, float64(i)*2.5-1, v, 1e-9)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.nii"))
	require.Error(t, err)
}

func TestRef(t *testing.T) {
	img := NewImage([]int{2, 2, 2}, Eye())

	inMem := FromImage(img)
	got, err := inMem.Resolve()
	require.NoError(t, err)
	assert.Same(t, img, got)

	path := filepath.Join(t.TempDir(), "img.nii.gz")
	require.NoError(t, Save(path, img))
	onDisk := FromPath(path)
	got, err = onDisk.Resolve()
	require.NoError(t, err)
	assert.Equal(t, img.Shape, got.Shape)

	var zero Ref
	assert.True(t, zero.IsZero())
	assert.False(t, inMem.IsZero())
	_, err = zero.Resolve()
	require.Error(t, err)
}
