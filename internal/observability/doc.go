// Package observability provides structured logging and Prometheus metrics
// for the tradedesk API.
//
// Auth failures are counted by kind here and nowhere else; HTTP responses
// for failed verification never say which check failed.
package observability
