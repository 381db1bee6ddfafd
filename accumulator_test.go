package varframe

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// encodeFrames concatenates the wire encoding of each payload.
func encodeFrames(payloads ...[]byte) []byte {
	var out []byte
	for _, p := range payloads {
		out = AppendFrame(out, p)
	}
	return out
}

// drain extracts frames until the accumulator needs more data.
func drain(t *testing.T, a *Accumulator, capacity int) [][]byte {
	t.Helper()
	var out [][]byte
	dst := make([]byte, capacity)
	for {
		size, ok, err := a.TryExtract(dst)
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, bytes.Clone(dst[:size]))
	}
}

type AccumulatorTestSuite struct {
	suite.Suite
	acc *Accumulator
}

func (s *AccumulatorTestSuite) SetupTest() {
	s.acc = NewAccumulator(0)
}

func (s *AccumulatorTestSuite) TestExtractSingleFrame() {
	s.acc.Append(AppendVarint(nil, 3))
	s.acc.Append([]byte{1, 2, 3})

	dst := make([]byte, 1024)
	size, ok, err := s.acc.TryExtract(dst)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().Equal(3, size)
	s.Assert().Equal([]byte{1, 2, 3}, dst[:size])
	s.Assert().Zero(s.acc.Buffered())

	size, ok, err = s.acc.TryExtract(dst)
	s.Require().NoError(err)
	s.Assert().False(ok)
	s.Assert().Zero(size)
}

func (s *AccumulatorTestSuite) TestPrefixOnlyNeedsMoreData() {
	s.acc.Append(AppendVarint(nil, 123))
	_, ok, err := s.acc.TryExtract(make([]byte, 1024))
	s.Require().NoError(err)
	s.Assert().False(ok)
	s.Assert().Equal(1, s.acc.Buffered(), "need-more-data must leave the accumulator unchanged")
}

func (s *AccumulatorTestSuite) TestLoneContinuationByte() {
	s.acc.Append([]byte{0x80})
	dst := make([]byte, 256)
	for range 3 {
		_, ok, err := s.acc.TryExtract(dst)
		s.Require().NoError(err)
		s.Assert().False(ok)
		s.Assert().Equal(1, s.acc.Buffered())
	}

	// 0x80 0x01 declares 128 bytes.
	s.acc.Append([]byte{0x01})
	payload := bytes.Repeat([]byte{0xab}, 128)
	s.acc.Append(payload[:100])
	_, ok, err := s.acc.TryExtract(dst)
	s.Require().NoError(err)
	s.Assert().False(ok)

	s.acc.Append(payload[100:])
	size, ok, err := s.acc.TryExtract(dst)
	s.Require().NoError(err)
	s.Require().True(ok)
	s.Assert().Equal(payload, dst[:size])
}

func (s *AccumulatorTestSuite) TestMessageTooLarge() {
	s.acc.Append(encodeFrames([]byte{1, 2, 3}))
	before := s.acc.Buffered()

	_, ok, err := s.acc.TryExtract(make([]byte, 1))
	s.Require().Error(err)
	s.Assert().False(ok)
	s.Assert().ErrorIs(err, ErrMessageTooLarge)
	s.Assert().Contains(err.Error(), "declared 3 bytes, capacity 1")
	s.Assert().Equal(before, s.acc.Buffered(), "oversized frames must not drop bytes")
}

func (s *AccumulatorTestSuite) TestMessageTooLargeBeforePayloadArrives() {
	s.acc.Append(AppendVarint(nil, 1024))
	_, _, err := s.acc.TryExtract(make([]byte, 100))
	s.Assert().ErrorIs(err, ErrMessageTooLarge)
}

func (s *AccumulatorTestSuite) TestMalformedVarint() {
	s.acc.Append(bytes.Repeat([]byte{0xff}, MaxVarintLen))
	_, ok, err := s.acc.TryExtract(make([]byte, 16))
	s.Assert().False(ok)
	s.Assert().ErrorIs(err, ErrMalformedVarint)
	s.Assert().Equal(MaxVarintLen, s.acc.Buffered())
}

func (s *AccumulatorTestSuite) TestEmptyFrameThenPayload() {
	s.acc.Append(AppendVarint(nil, 0))
	s.acc.Append(encodeFrames([]byte{9, 9}))

	frames := drain(s.T(), s.acc, 16)
	s.Require().Len(frames, 2)
	s.Assert().Empty(frames[0])
	s.Assert().Equal([]byte{9, 9}, frames[1])
}

func (s *AccumulatorTestSuite) TestDrainStopsAtPartialFrame() {
	stream := encodeFrames([]byte("alpha"), []byte("beta"), []byte("gamma"))
	s.acc.Append(stream[:len(stream)-2])

	frames := drain(s.T(), s.acc, 64)
	s.Require().Len(frames, 2)
	s.Assert().Equal("alpha", string(frames[0]))
	s.Assert().Equal("beta", string(frames[1]))
	s.Assert().Equal(len("gamma")-1, s.acc.Buffered())

	s.acc.Append(stream[len(stream)-2:])
	frames = drain(s.T(), s.acc, 64)
	s.Require().Len(frames, 1)
	s.Assert().Equal("gamma", string(frames[0]))
}

func (s *AccumulatorTestSuite) TestReset() {
	s.acc.Append([]byte{0x05, 1, 2})
	s.acc.Reset()
	s.Assert().Zero(s.acc.Buffered())

	s.acc.Append(encodeFrames([]byte{7}))
	frames := drain(s.T(), s.acc, 8)
	s.Require().Len(frames, 1)
	s.Assert().Equal([]byte{7}, frames[0])
}

func TestAccumulator(t *testing.T) {
	suite.Run(t, new(AccumulatorTestSuite))
}

// Every split point of one frame, including inside a multi-byte prefix,
// yields exactly that frame once both halves have arrived.
func TestAccumulator_SplitAtEveryBoundary(t *testing.T) {
	payload := bytes.Repeat([]byte{0x5a}, 300) // two-byte prefix
	stream := encodeFrames(payload)

	for cut := 0; cut <= len(stream); cut++ {
		a := NewAccumulator(0)
		a.Append(stream[:cut])
		if cut < len(stream) {
			assert.Empty(t, drain(t, a, 512), "cut %d", cut)
		}
		a.Append(stream[cut:])
		frames := drain(t, a, 512)
		require.Len(t, frames, 1, "cut %d", cut)
		assert.Equal(t, payload, frames[0], "cut %d", cut)
		assert.Zero(t, a.Buffered())
	}
}

// Many small appends force the read cursor to be compacted repeatedly; the
// frames must still come out intact and in order.
func TestAccumulator_CompactionPreservesOrder(t *testing.T) {
	var payloads [][]byte
	for i := range 200 {
		payloads = append(payloads, bytes.Repeat([]byte{byte(i)}, i%37))
	}
	stream := encodeFrames(payloads...)

	a := NewAccumulator(8)
	var got [][]byte
	for off := 0; off < len(stream); off += 5 {
		a.Append(stream[off:min(off+5, len(stream))])
		got = append(got, drain(t, a, 64)...)
	}
	require.Len(t, got, len(payloads))
	for i := range payloads {
		assert.Equal(t, payloads[i], got[i], "frame %d", i)
	}
	assert.Zero(t, a.Buffered())
}
