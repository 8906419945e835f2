package handlers

import "chatrelay/store"

var db *store.Store

// Init hands the handlers their store. Must run before routing starts.
func Init(s *store.Store) {
	db = s
}
