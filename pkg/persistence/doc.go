// Package persistence stores the controller's view of the network across
// restarts.
//
// The node registry is a JSON file listing every node this controller
// included, updated as devices are added and removed.
package persistence
