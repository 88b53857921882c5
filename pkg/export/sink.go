package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/companynet/pkg/common"

	"golang.org/x/sync/errgroup"
)

// Sink persists a built network somewhere.
type Sink interface {
	Name() string
	Persist(ctx context.Context, network *common.Network) error
}

type funcSink struct {
	name string
	fn   func(ctx context.Context, network *common.Network) error
}

func (s funcSink) Name() string { return s.name }

func (s funcSink) Persist(ctx context.Context, network *common.Network) error {
	return s.fn(ctx, network)
}

// SinkFunc adapts a function to the Sink interface.
func SinkFunc(name string, fn func(ctx context.Context, network *common.Network) error) Sink {
	return funcSink{name: name, fn: fn}
}

// FileSink writes the network document into Dir.
type FileSink struct {
	Dir string

	// Path is set to the last file written.
	Path string
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Persist(ctx context.Context, network *common.Network) error {
	path, err := WriteFile(s.Dir, network)
	if err != nil {
		return err
	}
	s.Path = path
	return nil
}

// PersistAll runs every sink concurrently. A failing sink does not cancel
// the others; all failures are joined, each annotated with its sink name.
func PersistAll(ctx context.Context, network *common.Network, sinks ...Sink) error {
	errs := make([]error, len(sinks))
	var eg errgroup.Group
	for i, sink := range sinks {
		if sink == nil {
			continue
		}
		eg.Go(func() error {
			if err := sink.Persist(ctx, network); err != nil {
				errs[i] = fmt.Errorf("%s sink: %w", sink.Name(), err)
			}
			return nil
		})
	}
	_ = eg.Wait()
	return errors.Join(errs...)
}
