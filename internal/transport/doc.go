// Package transport delivers mirror envelopes to a frkr ingestion endpoint.
//
// Two variants implement Transport: HTTPTransport posts the envelope as JSON
// to {baseURL}/ingest, GRPCTransport invokes frkr.ingest.v1.IngestService/Ingest
// over a single reused client connection. New selects the variant once from
// configuration and optionally wraps it with a circuit breaker.
//
// Delivery failures are logged by the transport and returned to the caller,
// which is expected to treat them as fire-and-forget.
package transport
