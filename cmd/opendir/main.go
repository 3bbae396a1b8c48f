// Package main provides the entry point for the opendir CLI.
//
// opendir crawls open directory listings (Apache/nginx style autoindex
// pages), classifies every file it finds by extension and stores the links
// in a searchable index.
//
// Usage:
//
//	opendir crawl <listing-url>...
//	opendir search <query> --type video
//	opendir serve --addr :8080
//
// See --help for all available options.
package main

func main() {
	Execute()
}
