// Package mcp exposes the study operations as Model Context Protocol tools.
//
// The server registers generate_subtopics, ask_question and generate_mcq on
// an official MCP SDK server. Each tool validates its string arguments, calls
// the bridge, and reports bridge failures as error results rather than
// protocol errors, so the calling model sees the message.
package mcp
