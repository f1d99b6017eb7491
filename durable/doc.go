// Package durable holds the stores behind the cache: the upload directory, the database
// table, and an optional object-store bucket. Each one implements types.Loader.
//
// Stores are called on a cache miss and by write policies. They do real I/O, so every
// method takes a context.
package durable
