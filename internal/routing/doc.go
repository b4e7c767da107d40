// Package routing decides which frkr stream an inbound request is mirrored to.
//
// A Config comes in one of three kinds:
//
//   - Single: every request goes to one stream.
//   - Patterns: an ordered list of path patterns. Exact paths win first,
//     then "/prefix/*" patterns in declaration order, then the "*" catch-all.
//   - Dynamic: a caller-supplied function decides, bypassing everything else.
//
// Pattern order is significant: when two prefixes overlap, the one declared
// first wins, so "/api/v1/*" must be listed before "/api/*".
package routing
