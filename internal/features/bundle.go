package features

import (
	"fmt"

	"github.com/example/go-wavernn/internal/safetensors"
)

// readBundleChannel decodes one channel tensor from a conditioning bundle.
// Tensors must be 2-D [N, width]; a 1-D tensor is read as width 1.
func readBundleChannel(store *safetensors.Store, channel string) (Channel, error) {
	t, err := store.Tensor(channel)
	if err != nil {
		return Channel{}, fmt.Errorf("features: bundle channel %s: %w", channel, err)
	}

	var width int

	switch len(t.Shape) {
	case 1:
		width = 1
	case 2:
		width = int(t.Shape[1])
	default:
		return Channel{}, fmt.Errorf("%w: bundle channel %s has rank %d, want 2",
			ErrShapeMismatch, channel, len(t.Shape))
	}

	if len(t.Data) == 0 {
		return Channel{}, fmt.Errorf("%w: %s has no frames", ErrShapeMismatch, channel)
	}

	return Channel{Name: channel, Width: width, Data: t.Data}, nil
}

// BundleTensors converts frames into the tensors of a conditioning bundle.
func BundleTensors(f *Frames) []safetensors.Tensor {
	out := make([]safetensors.Tensor, 0, 1+AuxStreams)
	for i, c := range f.Channels() {
		out = append(out, safetensors.Tensor{
			Name:  ChannelNames[i],
			Shape: []int64{int64(f.Len()), int64(c.Width)},
			Data:  c.Data,
		})
	}

	return out
}

// WriteBundle stores frames as a single safetensors file.
func WriteBundle(path string, f *Frames) error {
	return safetensors.WriteFile(path, BundleTensors(f))
}
