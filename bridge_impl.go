package studybridge

import (
	"context"

	"github.com/wagiedev/study-bridge-go/internal/bridge"
	"github.com/wagiedev/study-bridge-go/internal/config"
)

// bridgeWrapper wraps the internal bridge to adapt it to the public interface.
type bridgeWrapper struct {
	impl *bridge.Bridge
}

// Compile-time check that *bridgeWrapper implements the Bridge interface.
var _ Bridge = (*bridgeWrapper)(nil)

// newBridgeImpl creates the internal bridge implementation.
func newBridgeImpl(options *config.Options) *bridgeWrapper {
	return &bridgeWrapper{impl: bridge.New(options)}
}

func (b *bridgeWrapper) Start(ctx context.Context) error {
	return b.impl.Start(ctx)
}

func (b *bridgeWrapper) RequestSubtopics(ctx context.Context, topic string) (SubtopicList, error) {
	return b.impl.RequestSubtopics(ctx, topic)
}

func (b *bridgeWrapper) AskQuestion(ctx context.Context, question, subtopic string) (string, error) {
	return b.impl.AskQuestion(ctx, question, subtopic)
}

func (b *bridgeWrapper) RequestExercise(ctx context.Context, subtopic string) (*MCQ, error) {
	return b.impl.RequestExercise(ctx, subtopic)
}

func (b *bridgeWrapper) Status() Status {
	return b.impl.Status()
}

func (b *bridgeWrapper) Restart(ctx context.Context) error {
	return b.impl.Restart(ctx)
}

func (b *bridgeWrapper) Close() error {
	return b.impl.Close()
}
