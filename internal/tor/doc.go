// Package tor routes crawler traffic to .onion open directories.
//
// Hidden service listings are fetched through a Tor SOCKS5 proxy: either a
// daemon the user already runs (127.0.0.1:9050 by default) or one started on
// demand through tornago. Clear-web hosts never go through the proxy; the
// crawler asks IsOnionHost which client to use for each request.
package tor
