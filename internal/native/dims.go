package native

import "fmt"

// Dims fixes every layer shape of the vocoder network.
type Dims struct {
	Hidden  int // GRU state width
	Mel     int // mel frame width
	Aux     int // width of each of the four auxiliary streams
	FC      int // fc1/fc2 output width
	Classes int // number of discrete amplitude levels (fc3 output)
}

// DefaultDims returns the published model configuration: 512 hidden units,
// 80 mel bins, 32-wide auxiliary streams and 9-bit (512 level) output.
func DefaultDims() Dims {
	return Dims{Hidden: 512, Mel: 80, Aux: 32, FC: 512, Classes: 512}
}

// SquareDims returns a configuration where hidden, fc and class widths are
// all h, the layout of the published 512-unit model.
func SquareDims(h, mel, aux int) Dims {
	return Dims{Hidden: h, Mel: mel, Aux: aux, FC: h, Classes: h}
}

func (d Dims) Validate() error {
	switch {
	case d.Hidden < 1:
		return fmt.Errorf("%w: hidden size must be >= 1, got %d", ErrShape, d.Hidden)
	case d.Mel < 0:
		return fmt.Errorf("%w: mel width must be >= 0, got %d", ErrShape, d.Mel)
	case d.Aux < 0:
		return fmt.Errorf("%w: aux width must be >= 0, got %d", ErrShape, d.Aux)
	case d.FC < 1:
		return fmt.Errorf("%w: fc width must be >= 1, got %d", ErrShape, d.FC)
	case d.Classes < 2:
		return fmt.Errorf("%w: need at least 2 output classes, got %d", ErrShape, d.Classes)
	}

	return nil
}

// InputWidth is the width of the conditioning vector fed to the I layer:
// the feedback sample, one mel frame and the first auxiliary stream.
func (d Dims) InputWidth() int { return 1 + d.Mel + d.Aux }

// Gates is the width of a GRU gate projection (reset, update, candidate).
func (d Dims) Gates() int { return 3 * d.Hidden }
