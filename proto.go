package varframe

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/protobuf/proto"
)

// UnmarshalFrame decodes the payload of f into m. The frame is not released;
// m does not alias the payload afterwards.
func UnmarshalFrame(f *Frame, m proto.Message) error {
	return proto.Unmarshal(f.Payload(), m)
}

// Messages decodes every remaining frame of p into a message created by
// newMsg. Frames are released as soon as they are decoded.
//
// With skipInvalid, frames that fail to decode are logged and skipped;
// otherwise the first failure is yielded and ends the sequence. Pipeline
// errors always end it.
func Messages[M proto.Message](ctx context.Context, p *Pipeline, newMsg func() M, skipInvalid bool) iter.Seq2[M, error] {
	return func(yield func(M, error) bool) {
		var zero M
		for f, err := range p.All(ctx) {
			if err != nil {
				yield(zero, err)
				return
			}
			m := newMsg()
			err = UnmarshalFrame(f, m)
			size := f.Len()
			f.Release()
			if err != nil {
				if skipInvalid {
					p.logger.Warn().Err(err).Int("size", size).Int64("frame", p.Frames()).Msg("skipping undecodable frame")
					continue
				}
				yield(zero, fmt.Errorf("varframe: decode frame %d: %w", p.Frames(), err))
				return
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}
