// Package report renders run reports.
//
// This package contains writers for different output formats:
//   - SimpleWriter: plain text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with tables and a message chart
//
// Every writer implements Writer, so they can be selected by name with
// New and combined with MultiWriter.
package report
