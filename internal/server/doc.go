// Package server exposes the link store and the crawl engine over HTTP.
//
// Routes (chi):
//
//	POST   /api/crawl    crawl one root URL and report counts
//	GET    /api/search   keyword search over stored links
//	GET    /api/stats    aggregate counts
//	GET    /api/urls     list the crawl queue, optionally by status
//	POST   /api/urls     queue a URL
//	DELETE /api/urls     remove a URL from the queue
//	GET    /api/health   liveness and database reachability
//	GET    /metrics      Prometheus exposition
//
// Every /api response is JSON with a boolean "success" field, except
// /api/health which reports "status".
package server
