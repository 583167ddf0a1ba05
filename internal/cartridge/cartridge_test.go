package cartridge_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nescore/internal/cartridge"
)

// buildINES assembles a minimal iNES image: prgBanks x 16KiB PRG,
// chrBanks x 8KiB CHR, with the given flags 6/7 bytes.
func buildINES(prgBanks, chrBanks int, flags6, flags7 uint8) []byte {
	header := []byte{'N', 'E', 'S', 0x1a, byte(prgBanks), byte(chrBanks), flags6, flags7, 0, 0, 0, 0, 0, 0, 0, 0}
	buf := make([]byte, 0, len(header)+prgBanks*16*1024+chrBanks*8*1024)
	buf = append(buf, header...)
	for i := 0; i < prgBanks*16*1024; i++ {
		buf = append(buf, byte(i))
	}
	for i := 0; i < chrBanks*8*1024; i++ {
		buf = append(buf, byte(i))
	}
	return buf
}

func TestLoadRejectsBadMagic(t *testing.T) {
	data := buildINES(1, 1, 0, 0)
	data[0] = 'X'
	_, err := cartridge.Load(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestLoadRejectsNonZeroMapper(t *testing.T) {
	data := buildINES(1, 1, 0x10, 0x00) // mapper nibble = 1
	_, err := cartridge.Load(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestLoadRejectsZeroPRGSize(t *testing.T) {
	data := buildINES(0, 1, 0, 0)
	_, err := cartridge.Load(bytes.NewReader(data))
	assert.Error(t, err)
}

func TestMirroringFromFlags6(t *testing.T) {
	horiz, err := cartridge.Load(bytes.NewReader(buildINES(1, 1, 0x00, 0)))
	require.NoError(t, err)
	assert.Equal(t, cartridge.MirrorHorizontal, horiz.Mirroring())

	vert, err := cartridge.Load(bytes.NewReader(buildINES(1, 1, 0x01, 0)))
	require.NoError(t, err)
	assert.Equal(t, cartridge.MirrorVertical, vert.Mirroring())

	four, err := cartridge.Load(bytes.NewReader(buildINES(1, 1, 0x08, 0)))
	require.NoError(t, err)
	assert.Equal(t, cartridge.MirrorFourScreen, four.Mirroring())
}

func TestSinglePRGBankMirrorsAcrossBothHalves(t *testing.T) {
	c, err := cartridge.Load(bytes.NewReader(buildINES(1, 1, 0, 0)))
	require.NoError(t, err)
	assert.Equal(t, c.ReadPRG(0x8000), c.ReadPRG(0xC000))
	assert.Equal(t, c.ReadPRG(0x8001), c.ReadPRG(0xC001))
}

func TestTwoPRGBanksDoNotMirror(t *testing.T) {
	data := buildINES(2, 1, 0, 0)
	data[16+16*1024] = 0xaa // first byte of bank 2; the byte(i) fill would put 0x00 there, same as bank 1
	c, err := cartridge.Load(bytes.NewReader(data))
	require.NoError(t, err)
	assert.NotEqual(t, c.ReadPRG(0x8000), c.ReadPRG(0xC000))
}

func TestZeroCHRBanksFallsBackToWritableRAM(t *testing.T) {
	c, err := cartridge.Load(bytes.NewReader(buildINES(1, 0, 0, 0)))
	require.NoError(t, err)
	c.WriteCHR(0x0010, 0x42)
	assert.Equal(t, uint8(0x42), c.ReadCHR(0x0010))
}

func TestCHRROMWritesAreIgnored(t *testing.T) {
	c, err := cartridge.Load(bytes.NewReader(buildINES(1, 1, 0, 0)))
	require.NoError(t, err)
	before := c.ReadCHR(0x0000)
	c.WriteCHR(0x0000, before+1)
	assert.Equal(t, before, c.ReadCHR(0x0000), "CHR-ROM write should be a no-op")
}

func TestWritePRGPanics(t *testing.T) {
	c, err := cartridge.Load(bytes.NewReader(buildINES(1, 1, 0, 0)))
	require.NoError(t, err)
	assert.Panics(t, func() { c.WritePRG(0x8000, 0xff) })
}

func TestTrainerIsSkipped(t *testing.T) {
	header := []byte{'N', 'E', 'S', 0x1a, 1, 1, 0x04, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	buf := append([]byte{}, header...)
	trainer := make([]byte, 512)
	for i := range trainer {
		trainer[i] = 0xee
	}
	buf = append(buf, trainer...)
	prg := make([]byte, 16*1024)
	prg[0] = 0x55
	buf = append(buf, prg...)
	buf = append(buf, make([]byte, 8*1024)...)

	c, err := cartridge.Load(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.Equal(t, uint8(0x55), c.ReadPRG(0x8000), "PRG-ROM should start after the skipped trainer")
}
