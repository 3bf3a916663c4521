// Package studybridge runs an external study-assistant worker process and
// exposes its content generation as typed Go calls.
//
// The worker is a long-lived executable that speaks line-delimited JSON over
// stdin/stdout. The bridge launches it, waits for its ready line, serializes
// commands to it, correlates responses, and parses the worker's free text
// into subtopic outlines and multiple-choice exercises.
//
// # Basic Usage
//
//	b := studybridge.New(
//	    studybridge.WithLogger(slog.Default()),
//	    studybridge.WithWorkerPath("./cpp/ai_assistant"),
//	)
//	defer b.Close()
//
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	subtopics, err := b.RequestSubtopics(ctx, "Gravity")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, s := range subtopics {
//	    fmt.Println(s)
//	}
//
// WithBridge wraps the same lifecycle around a callback:
//
//	err := studybridge.WithBridge(ctx, func(b studybridge.Bridge) error {
//	    answer, err := b.AskQuestion(ctx, "What is inertia?", "Newton's Laws")
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(answer)
//	    return nil
//	})
//
// # Degraded Content
//
// RequestSubtopics always returns at least three entries and RequestExercise
// always returns four options. When the worker's text cannot be parsed, the
// bridge substitutes generic content, logs a warning, and counts the fallback
// in the metrics recorder. Callers do not see an error in that case.
//
// # Error Handling
//
//	subtopics, err := b.RequestSubtopics(ctx, topic)
//	if err != nil {
//	    if upstream, ok := errors.AsType[*studybridge.UpstreamError](err); ok {
//	        log.Printf("worker failed: %s", upstream.Message)
//	    }
//	    if errors.Is(err, studybridge.ErrRequestTimeout) {
//	        log.Print("worker took too long")
//	    }
//	}
//
// # Requirements
//
// The worker executable must be installed. It is looked up in PATH as
// "ai_assistant" and in ./cpp; use WithWorkerPath to point at it directly.
package studybridge
