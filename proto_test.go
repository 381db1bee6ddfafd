package varframe

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func marshalStrings(t *testing.T, values ...string) [][]byte {
	t.Helper()
	out := make([][]byte, len(values))
	for i, v := range values {
		b, err := proto.Marshal(wrapperspb.String(v))
		require.NoError(t, err)
		out[i] = b
	}
	return out
}

func newStringValue() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }

func TestMessages(t *testing.T) {
	want := []string{"first", "", "third comment"}
	stream := encodeFrames(marshalStrings(t, want...)...)
	pool := NewPool()
	p, err := NewPipeline(NewSliceSource(chunked(stream, 3)...), WithPool(pool))
	require.NoError(t, err)

	var got []string
	for m, err := range Messages(context.Background(), p, newStringValue, false) {
		require.NoError(t, err)
		got = append(got, m.GetValue())
	}
	assert.Equal(t, want, got)
	assert.Zero(t, pool.Stats().InUse, "decoded frames are released")
}

func TestMessages_InvalidPayload(t *testing.T) {
	valid := marshalStrings(t, "before", "after")
	// Field 1 with wire type 2 declaring 100 bytes that are not there.
	invalid := []byte{0x0a, 0x64, 0x01}
	stream := encodeFrames(valid[0], invalid, valid[1])

	t.Run("skip", func(t *testing.T) {
		p, err := NewPipeline(NewSliceSource(stream))
		require.NoError(t, err)
		var got []string
		for m, err := range Messages(context.Background(), p, newStringValue, true) {
			require.NoError(t, err)
			got = append(got, m.GetValue())
		}
		assert.Equal(t, []string{"before", "after"}, got)
	})

	t.Run("stop", func(t *testing.T) {
		p, err := NewPipeline(NewSliceSource(stream))
		require.NoError(t, err)
		var (
			got     []string
			lastErr error
		)
		for m, err := range Messages(context.Background(), p, newStringValue, false) {
			if err != nil {
				lastErr = err
				continue
			}
			got = append(got, m.GetValue())
		}
		assert.Equal(t, []string{"before"}, got)
		require.Error(t, lastErr)
		assert.Contains(t, lastErr.Error(), "decode frame 2")
	})
}

func TestMessages_PipelineErrorEndsSequence(t *testing.T) {
	stream := append(encodeFrames(marshalStrings(t, "only")...), bytes.Repeat([]byte{0x80}, MaxVarintLen)...)
	p, err := NewPipeline(NewSliceSource(stream))
	require.NoError(t, err)

	var errs []error
	n := 0
	for _, err := range Messages(context.Background(), p, newStringValue, true) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	assert.Equal(t, 1, n)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrMalformedVarint)
}

func TestUnmarshalFrame(t *testing.T) {
	payload := marshalStrings(t, "hello")[0]
	p, err := NewPipeline(NewSliceSource(AppendFrame(nil, payload)))
	require.NoError(t, err)
	f, err := p.Next(context.Background())
	require.NoError(t, err)

	var m wrapperspb.StringValue
	require.NoError(t, UnmarshalFrame(f, &m))
	f.Release()
	assert.Equal(t, "hello", m.GetValue())
}
