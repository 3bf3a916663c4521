// Package protocol implements the line-delimited command protocol spoken
// with the study assistant worker.
//
// Each command is one JSON object on one line, tagged with a ULID
// request_id; each response is one JSON object on one line. The Channel
// keeps at most one command in flight and correlates the next response line
// to it:
//   - lines echoing a request_id are matched exactly, stale ids are discarded
//   - untagged lines are first attributed to commands that already timed out
//     or were cancelled (orphans) and dropped, then to the pending command
//   - a line that is not valid JSON resolves the pending command with a
//     ProtocolError
//
// Example usage:
//
//	channel := protocol.NewChannel(log, worker, options)
//	channel.Start()
//	defer channel.Stop()
//
//	resp, err := channel.Send(ctx, protocol.AskQuestion{
//	    Question: "What is gravity?",
//	    Subtopic: "Forces",
//	}, 0)
package protocol
