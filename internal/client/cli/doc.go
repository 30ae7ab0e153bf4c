// Package cli implements the uploader command.
//
// Every file argument becomes one upload session. Sessions run side by
// side, each with its own bounded pool of part transfers. Progress goes to
// stderr: a single redrawn line on a terminal, one line per state change
// otherwise. A summary goes to stdout. Interrupting the process cancels all
// sessions and aborts their multipart uploads.
package cli
