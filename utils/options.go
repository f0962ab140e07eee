package utils

const (
	DefaultSegmentCapacity = 256
)

// Construction-time parameters. SegmentCapacity is the number of node slots
// in every segment the pool allocates; it is fixed for the pool's lifetime.
type Options struct {
	SegmentCapacity uint32
}

func NewDefaultOptions() *Options {
	opt := &Options{}
	opt.SegmentCapacity = DefaultSegmentCapacity
	return opt
}
