// Package store holds cache entries with exact byte accounting and touch ordering.
package store
