package features

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/example/go-wavernn/internal/native"
	"github.com/example/go-wavernn/internal/safetensors"
	"github.com/sourcegraph/conc/pool"
)

// LoadStat records how long one channel took to provision.
type LoadStat struct {
	Channel  string
	Rows     int
	Duration time.Duration
}

// Options tunes LoadConditioning.
type Options struct {
	// MaxSamples truncates the sequence when > 0.
	MaxSamples int
}

// LoadConditioning provisions every channel from path, which is either a
// directory holding mels.txt and aux_0.txt .. aux_3.txt or a safetensors
// bundle. Channels load concurrently, one task each; the first failure
// cancels the others. The result is checked against dims before return.
func LoadConditioning(ctx context.Context, path string, dims native.Dims, opts Options) (*Frames, []LoadStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, fmt.Errorf("features: inputs %s: %w", path, err)
	}

	var read func(ctx context.Context, channel string) (Channel, error)

	if info.IsDir() {
		read = func(ctx context.Context, channel string) (Channel, error) {
			return ReadMatrixFile(ctx, filepath.Join(path, channel+".txt"), channel)
		}
	} else {
		store, err := safetensors.OpenStore(path, safetensors.StoreOptions{})
		if err != nil {
			return nil, nil, fmt.Errorf("features: open bundle: %w", err)
		}
		defer store.Close()

		read = func(_ context.Context, channel string) (Channel, error) {
			return readBundleChannel(store, channel)
		}
	}

	var (
		channels [len(ChannelNames)]Channel
		stats    = make([]LoadStat, len(ChannelNames))
	)

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	for i, channel := range ChannelNames {
		p.Go(func(ctx context.Context) error {
			start := time.Now()

			c, err := read(ctx, channel)
			if err != nil {
				return err
			}

			channels[i] = c
			stats[i] = LoadStat{Channel: channel, Rows: c.Rows(), Duration: time.Since(start)}

			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	frames, err := NewFrames(channels[0], [AuxStreams]Channel(channels[1:]))
	if err != nil {
		return nil, nil, err
	}

	if err := frames.Validate(dims); err != nil {
		return nil, nil, err
	}

	return frames.Truncate(opts.MaxSamples), stats, nil
}
